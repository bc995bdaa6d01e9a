package handler

import (
	"github.com/vmihailenco/msgpack/v5"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype of the marketplace service
// ("application/grpc+msgpack").
const CodecName = "msgpack"

type msgpackCodec struct{}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

func (msgpackCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(msgpackCodec{})
}
