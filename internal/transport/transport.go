package transport

import (
	"io"

	"github.com/frankli0324/easyhttp/internal/model"
)

type Transport interface {
	Write(w io.Writer, req *model.PreparedRequest) error
	Read(r io.Reader, req *model.PreparedRequest, resp *model.Response) error
}

var _ Transport = HTTP1{}
