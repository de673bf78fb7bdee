package codec

import (
	"errors"
	"strings"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type user struct {
	ID   string `json:"id" cbor:"id" msgpack:"id"`
	Name string `json:"name" cbor:"name" msgpack:"name"`
}

func TestSelectEmptySet(t *testing.T) {
	if _, err := Select[user](nil, ""); !errors.Is(err, ErrNoCodecs) {
		t.Fatalf("err=%v want ErrNoCodecs", err)
	}
	if _, err := Select[user]([]Codec[user]{}, "json"); !errors.Is(err, ErrNoCodecs) {
		t.Fatalf("err=%v want ErrNoCodecs", err)
	}
}

func TestSelectLastRegisteredWithoutPreference(t *testing.T) {
	set := []Codec[user]{JSON[user]{}, Msgpack[user]{}, MustCBOR[user](false)}
	got, err := Select(set, "")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got.ContentType() != ContentTypeCBOR {
		t.Fatalf("got %s want last registered (cbor)", got.ContentType())
	}
}

func TestSelectSkipsNilCodecs(t *testing.T) {
	got, err := Select([]Codec[user]{JSON[user]{}, nil}, "")
	if err != nil || got == nil || got.ContentType() != ContentTypeJSON {
		t.Fatalf("got=%v err=%v want the last non-nil codec (json)", got, err)
	}
	for _, pref := range []string{"", "json"} {
		if _, err := Select([]Codec[user]{nil, nil}, pref); !errors.Is(err, ErrNoCodecs) {
			t.Fatalf("pref=%q err=%v want ErrNoCodecs", pref, err)
		}
	}
}

func TestSelectByContentTypeOrTypeName(t *testing.T) {
	set := []Codec[user]{JSON[user]{}, Msgpack[user]{}, MustCBOR[user](false)}
	cases := map[string]string{
		"application/json":    ContentTypeJSON,
		"APPLICATION/MSGPACK": ContentTypeMsgpack,
		"json":                ContentTypeJSON,
		"Msgpack":             ContentTypeMsgpack,
		"cbor":                ContentTypeCBOR,
	}
	for pref, want := range cases {
		got, err := Select(set, pref)
		if err != nil {
			t.Fatalf("Select(%q): %v", pref, err)
		}
		if got.ContentType() != want {
			t.Fatalf("Select(%q)=%s want %s", pref, got.ContentType(), want)
		}
	}
}

func TestSelectUnknownPreference(t *testing.T) {
	_, err := Select([]Codec[user]{JSON[user]{}}, "application/xml")
	if !errors.Is(err, ErrCodecNotFound) {
		t.Fatalf("err=%v want ErrCodecNotFound", err)
	}
	if !strings.Contains(err.Error(), "application/xml") {
		t.Fatalf("error should name the preference: %v", err)
	}
}

func TestTypeName(t *testing.T) {
	if n := TypeName(JSON[user]{}); n != "JSON" {
		t.Fatalf("TypeName=%q", n)
	}
	if n := TypeName(&Limit[user]{}); n != "Limit" {
		t.Fatalf("TypeName(ptr)=%q", n)
	}
	if n := TypeName(nil); n != "" {
		t.Fatalf("TypeName(nil)=%q", n)
	}
}

func TestStructCodecsRoundTrip(t *testing.T) {
	in := user{ID: "1", Name: "Ada"}
	for _, c := range []Codec[user]{JSON[user]{}, Msgpack[user]{}, MustCBOR[user](true), MustCBOR[user](false)} {
		b, err := c.Encode(in)
		if err != nil {
			t.Fatalf("%s encode: %v", c.ContentType(), err)
		}
		out, err := c.Decode(b)
		if err != nil {
			t.Fatalf("%s decode: %v", c.ContentType(), err)
		}
		if out != in {
			t.Fatalf("%s: got %+v want %+v", c.ContentType(), out, in)
		}
	}
}

func TestCBORDeterministicIsStable(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	a, err := c.Encode(map[string]int{"b": 2, "a": 1, "c": 3})
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Encode(map[string]int{"c": 3, "a": 1, "b": 2})
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatalf("deterministic encoding differs: %x vs %x", a, b)
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("hello"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if !proto.Equal(got, wrapperspb.String("hello")) || got.GetValue() != "hello" {
		t.Fatalf("got %v", got)
	}
	if c.ContentType() != ContentTypeProtobuf {
		t.Fatalf("content type %q", c.ContentType())
	}
}

func TestLimitRejectsOversized(t *testing.T) {
	c := Limit[string]{Inner: String{}, MaxDecode: 3}
	if c.ContentType() != ContentTypeString {
		t.Fatalf("Limit must forward content type")
	}
	if _, err := c.Decode([]byte("abcd")); err == nil {
		t.Fatalf("expected size error")
	}
	if v, err := c.Decode([]byte("abc")); err != nil || v != "abc" {
		t.Fatalf("v=%q err=%v", v, err)
	}
	unlimited := Limit[[]byte]{Inner: Bytes{}}
	if _, err := unlimited.Decode(make([]byte, 1<<16)); err != nil {
		t.Fatalf("MaxDecode<=0 must disable limit: %v", err)
	}
}
