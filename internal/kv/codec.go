package kv

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
	"github.com/hashicorp/go-msgpack/v2/codec"
)

// Codec 记录值的编解码器
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// NewCodec 按名称创建编解码器: json / msgpack
// compressed 为 true 时外层包一层 snappy
func NewCodec(name string, compressed bool) (Codec, error) {
	var c Codec

	switch name {
	case "", "json":
		c = jsonCodec{}
	case "msgpack":
		c = msgpackCodec{}
	default:
		return nil, fmt.Errorf("unknown codec: %q", name)
	}

	if compressed {
		c = snappyCodec{inner: c}
	}

	return c, nil
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return "json" }

type msgpackCodec struct{}

var msgpackHandle = &codec.MsgpackHandle{}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := codec.NewEncoder(&buf, msgpackHandle).Encode(v); err != nil {
		return nil, fmt.Errorf("msgpack encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	if err := codec.NewDecoder(bytes.NewReader(data), msgpackHandle).Decode(v); err != nil {
		return fmt.Errorf("msgpack decode: %w", err)
	}
	return nil
}

func (msgpackCodec) Name() string { return "msgpack" }

// snappyCodec 在内层编解码器外包一层 snappy 压缩
type snappyCodec struct {
	inner Codec
}

func (c snappyCodec) Marshal(v any) ([]byte, error) {
	raw, err := c.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}

func (c snappyCodec) Unmarshal(data []byte, v any) error {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return fmt.Errorf("snappy decode: %w", err)
	}
	return c.inner.Unmarshal(raw, v)
}

func (c snappyCodec) Name() string { return c.inner.Name() + "+snappy" }
