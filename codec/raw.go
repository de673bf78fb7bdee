package codec

const (
	ContentTypeBytes  = "application/octet-stream"
	ContentTypeString = "text/plain"
)

// Bytes is an identity codec for []byte values.
type Bytes struct{}

func (Bytes) ContentType() string             { return ContentTypeBytes }
func (Bytes) Encode(b []byte) ([]byte, error) { return b, nil }
func (Bytes) Decode(b []byte) ([]byte, error) { return b, nil }

// String converts between string and []byte. Assumes UTF-8, no validation.
type String struct{}

func (String) ContentType() string             { return ContentTypeString }
func (String) Encode(s string) ([]byte, error) { return []byte(s), nil }
func (String) Decode(b []byte) (string, error) { return string(b), nil }
