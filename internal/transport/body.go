package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
)

// Body is a request payload. Use JSON or Multipart to build one; a nil Body
// sends no payload.
type Body interface {
	open() (io.Reader, string, error)
}

type jsonBody struct {
	value any
}

// JSON encodes value as an application/json request body.
func JSON(value any) Body {
	return jsonBody{value: value}
}

func (b jsonBody) open() (io.Reader, string, error) {
	data, err := json.Marshal(b.value)
	if err != nil {
		return nil, "", fmt.Errorf("encode json body: %w", err)
	}
	return bytes.NewReader(data), "application/json", nil
}

type multipartBody struct {
	field    string
	filename string
	content  io.Reader
}

// Multipart sends content as a single file part named field.
// The content is streamed, so large files are never held in memory.
func Multipart(field, filename string, content io.Reader) Body {
	return multipartBody{field: field, filename: filename, content: content}
}

func (b multipartBody) open() (io.Reader, string, error) {
	if b.content == nil {
		return nil, "", fmt.Errorf("multipart body: %s has no content", b.filename)
	}
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile(b.field, b.filename)
		if err == nil {
			_, err = io.Copy(part, b.content)
		}
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
	}()
	return pr, writer.FormDataContentType(), nil
}
