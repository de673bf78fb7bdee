package codec

import "github.com/vmihailenco/msgpack/v5"

const ContentTypeMsgpack = "application/msgpack"

// Msgpack is a Codec that serializes values using vmihailenco/msgpack/v5.
// The zero value is ready to use.
//
// Mind struct tag differences vs JSON; use `msgpack:"fieldName"` tags if you
// need explicit control.
type Msgpack[V any] struct{}

var _ Codec[struct{}] = Msgpack[struct{}]{}

func (Msgpack[V]) ContentType() string { return ContentTypeMsgpack }

func (Msgpack[V]) Encode(v V) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}
