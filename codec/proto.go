package codec

import (
	"fmt"
	"strconv"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/unkn0wn-root/entstore/value"
)

// Proto encodes nodes as google.protobuf.Struct messages so entries can be
// read by any protobuf runtime. Integers travel as decimal strings because
// google.protobuf.Value only carries doubles.
// The zero value is ready to use.
type Proto struct{}

var _ NodeCodec = Proto{}

func (Proto) Encode(n value.Node) ([]byte, error) {
	return proto.Marshal(nodeToStruct(n))
}

func (Proto) Decode(b []byte) (value.Node, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(b, &st); err != nil {
		return value.Node{}, err
	}
	return structToNode(&st)
}

func nodeToStruct(n value.Node) *structpb.Struct {
	f := map[string]*structpb.Value{
		"k": structpb.NewNumberValue(float64(n.K)),
	}
	switch n.K {
	case value.KindBool:
		f["b"] = structpb.NewBoolValue(n.B)
	case value.KindInt:
		f["i"] = structpb.NewStringValue(strconv.FormatInt(n.I, 10))
	case value.KindFloat:
		f["f"] = structpb.NewNumberValue(n.F)
	case value.KindString, value.KindRef:
		f["s"] = structpb.NewStringValue(n.S)
	case value.KindList:
		items := make([]*structpb.Value, len(n.L))
		for i, it := range n.L {
			items[i] = structpb.NewStructValue(nodeToStruct(it))
		}
		f["l"] = structpb.NewListValue(&structpb.ListValue{Values: items})
	}
	return &structpb.Struct{Fields: f}
}

func structToNode(st *structpb.Struct) (value.Node, error) {
	f := st.GetFields()
	kv, ok := f["k"]
	if !ok {
		return value.Node{}, fmt.Errorf("proto codec: missing kind")
	}
	n := value.Node{K: value.Kind(kv.GetNumberValue())}
	switch n.K {
	case value.KindBool:
		n.B = f["b"].GetBoolValue()
	case value.KindInt:
		i, err := strconv.ParseInt(f["i"].GetStringValue(), 10, 64)
		if err != nil {
			return value.Node{}, fmt.Errorf("proto codec: int: %w", err)
		}
		n.I = i
	case value.KindFloat:
		n.F = f["f"].GetNumberValue()
	case value.KindString, value.KindRef:
		n.S = f["s"].GetStringValue()
	case value.KindList:
		vals := f["l"].GetListValue().GetValues()
		n.L = make([]value.Node, len(vals))
		for i, v := range vals {
			child, err := structToNode(v.GetStructValue())
			if err != nil {
				return value.Node{}, err
			}
			n.L[i] = child
		}
	}
	return n, nil
}
