// Package keys is the default key registry: it canonicalises entity and
// field identifiers into the opaque strings the store is keyed by, and turns
// serialised (entity, field) keys back into their parts.
//
//	entity key:      <typename>:<id>             e.g. User:1
//	field key:       <name> or <name>(<args>)    e.g. todos({"first":10})
//	joined key:      <entity>.<field>            e.g. Query.me
//	serialized key:  <entity with . as %2e>.<field>
package keys

import (
	"encoding/json"
	"strings"
)

// FieldInfo describes one stored field of an entity.
type FieldInfo struct {
	FieldKey  string
	FieldName string
	Arguments map[string]any
}

// Registry is the default, stateless key registry. The zero value is ready
// to use.
type Registry struct{}

// KeyOfEntity returns the canonical entity key for typename and id.
// An empty id yields an empty key (the entity cannot be normalised).
func KeyOfEntity(typename, id string) string {
	if id == "" {
		return ""
	}
	return typename + ":" + id
}

// KeyOfField returns the canonical field key. Arguments are JSON encoded,
// which sorts map keys, so equal argument sets always produce equal keys.
func KeyOfField(name string, args map[string]any) string {
	if len(args) == 0 {
		return name
	}
	b, err := json.Marshal(args)
	if err != nil {
		return name
	}
	return name + "(" + string(b) + ")"
}

// JoinKeys joins an entity key and a field key for dependency tracking.
func (Registry) JoinKeys(entityKey, fieldKey string) string {
	return entityKey + "." + fieldKey
}

var (
	escapeEntity   = strings.NewReplacer("%", "%25", ".", "%2e")
	unescapeEntity = strings.NewReplacer("%25", "%", "%2e", ".")
)

// SerializeKeys encodes an (entity, field) pair into a single storage key.
// Percent signs and dots inside the entity key are escaped so the first dot
// always separates the two parts and every entity key decodes back to itself.
func (Registry) SerializeKeys(entityKey, fieldKey string) string {
	return escapeEntity.Replace(entityKey) + "." + fieldKey
}

// DeserializeKeyInfo reverses SerializeKeys. ok is false when key contains no
// separator.
func (Registry) DeserializeKeyInfo(key string) (entityKey, fieldKey string, ok bool) {
	i := strings.IndexByte(key, '.')
	if i < 0 {
		return "", "", false
	}
	return unescapeEntity.Replace(key[:i]), key[i+1:], true
}

// FieldInfoOfKey splits a field key into its name and decoded arguments.
// Keys whose argument part is not valid JSON keep the whole key as name.
func (Registry) FieldInfoOfKey(fieldKey string) FieldInfo {
	i := strings.IndexByte(fieldKey, '(')
	if i < 0 || !strings.HasSuffix(fieldKey, ")") {
		return FieldInfo{FieldKey: fieldKey, FieldName: fieldKey}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(fieldKey[i+1:len(fieldKey)-1]), &args); err != nil {
		return FieldInfo{FieldKey: fieldKey, FieldName: fieldKey}
	}
	return FieldInfo{FieldKey: fieldKey, FieldName: fieldKey[:i], Arguments: args}
}
