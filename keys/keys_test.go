package keys

import "testing"

func TestKeyOfFieldCanonicalisesArguments(t *testing.T) {
	a := KeyOfField("todos", map[string]any{"first": 10, "after": "x"})
	b := KeyOfField("todos", map[string]any{"after": "x", "first": 10})
	if a != b {
		t.Fatalf("argument order leaked into key: %q vs %q", a, b)
	}
	if want := `todos({"after":"x","first":10})`; a != want {
		t.Fatalf("got %q want %q", a, want)
	}
	if got := KeyOfField("me", nil); got != "me" {
		t.Fatalf("got %q", got)
	}
}

func TestSerializeRoundTripEscapesDots(t *testing.T) {
	var r Registry
	key := r.SerializeKeys("File:a.txt", `size({"unit":"kb"})`)
	if key != `File:a%2etxt.size({"unit":"kb"})` {
		t.Fatalf("unexpected key %q", key)
	}
	e, f, ok := r.DeserializeKeyInfo(key)
	if !ok || e != "File:a.txt" || f != `size({"unit":"kb"})` {
		t.Fatalf("got (%q, %q, %v)", e, f, ok)
	}
	if _, _, ok := r.DeserializeKeyInfo("nodot"); ok {
		t.Fatalf("expected !ok for key without separator")
	}

	for _, entity := range []string{"Tag:50%2e", "Tag:50.", "Tag:100%", "Tag:%252e.%", "Tag:%%2e."} {
		key := r.SerializeKeys(entity, "name")
		e, f, ok := r.DeserializeKeyInfo(key)
		if !ok || e != entity || f != "name" {
			t.Fatalf("%q -> %q -> (%q, %q, %v)", entity, key, e, f, ok)
		}
	}
	if a, b := r.SerializeKeys("Tag:50%2e", "name"), r.SerializeKeys("Tag:50.", "name"); a == b {
		t.Fatalf("distinct entities share key %q", a)
	}
}

func TestFieldInfoOfKey(t *testing.T) {
	var r Registry
	fi := r.FieldInfoOfKey(KeyOfField("todos", map[string]any{"first": 10}))
	if fi.FieldName != "todos" || fi.Arguments["first"] != float64(10) {
		t.Fatalf("unexpected info %+v", fi)
	}
	plain := r.FieldInfoOfKey("name")
	if plain.FieldName != "name" || plain.Arguments != nil {
		t.Fatalf("unexpected info %+v", plain)
	}
	broken := r.FieldInfoOfKey("odd(notjson)")
	if broken.FieldName != "odd(notjson)" {
		t.Fatalf("unexpected info %+v", broken)
	}
}

func TestKeyOfEntity(t *testing.T) {
	if got := KeyOfEntity("User", "1"); got != "User:1" {
		t.Fatalf("got %q", got)
	}
	if got := KeyOfEntity("User", ""); got != "" {
		t.Fatalf("got %q", got)
	}
}
