// Package codec turns cached values into bytes for byte-oriented stores.
package codec

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Codec encodes/decodes values V to []byte for storage.
// ContentType is recorded next to the payload and checked on read.
type Codec[V any] interface {
	ContentType() string
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

var (
	// ErrNoCodecs means selection ran over an empty codec set.
	ErrNoCodecs = errors.New("codec: no codecs registered")
	// ErrCodecNotFound means a preferred codec matched none of the registered ones.
	ErrCodecNotFound = errors.New("codec: preferred codec not registered")
)

// Select picks one codec out of codecs.
//
// preferred is compared case-insensitively against each codec's ContentType
// and its type name without generic arguments ("JSON", "CBOR", ...). With no
// preference the last registered codec wins. Nil entries are ignored; a set
// of only nils counts as empty.
//
// Errors are configuration errors and should fail startup, not be retried.
func Select[V any](codecs []Codec[V], preferred string) (Codec[V], error) {
	if preferred == "" {
		for i := len(codecs) - 1; i >= 0; i-- {
			if codecs[i] != nil {
				return codecs[i], nil
			}
		}
		return nil, ErrNoCodecs
	}
	registered := false
	for _, c := range codecs {
		if c == nil {
			continue
		}
		registered = true
		if strings.EqualFold(c.ContentType(), preferred) || strings.EqualFold(TypeName(c), preferred) {
			return c, nil
		}
	}
	if !registered {
		return nil, ErrNoCodecs
	}
	return nil, fmt.Errorf("%w: %q", ErrCodecNotFound, preferred)
}

// TypeName returns the codec's Go type name with package path, pointer and
// generic arguments stripped: codec.JSON[main.User] -> "JSON".
func TypeName(c any) string {
	t := reflect.TypeOf(c)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}
