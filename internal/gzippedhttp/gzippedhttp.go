// Package gzippedhttp makes gzip transparent for the HTTP layer: it unpacks
// compressed request bodies and compresses response bodies when the client
// advertises gzip support.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var zipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

// UnzippingReader replaces a gzip-compressed request body with its
// decompressed stream.
type UnzippingReader struct {
	body         io.ReadCloser
	decompressor *gzip.Reader
}

// NewUnzippingReader wraps a gzip-compressed body. It fails when the body
// does not start with a valid gzip header.
func NewUnzippingReader(body io.ReadCloser) (*UnzippingReader, error) {
	decompressor, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return &UnzippingReader{
		body:         body,
		decompressor: decompressor,
	}, nil
}

// Read reads decompressed data from the underlying gzip stream.
func (u UnzippingReader) Read(p []byte) (n int, err error) {
	return u.decompressor.Read(p)
}

// Close closes the wrapped body first and the gzip reader after it.
func (u *UnzippingReader) Close() error {
	if err := u.body.Close(); err != nil {
		return err
	}
	return u.decompressor.Close()
}

// ZippingResponseWriter compresses everything written through it and marks
// successful responses with the gzip Content-Encoding header.
type ZippingResponseWriter struct {
	http.ResponseWriter
	compressor *gzip.Writer
}

// NewZippingResponseWriter takes a gzip writer from the shared pool and
// binds it to the given response writer.
func NewZippingResponseWriter(response http.ResponseWriter) *ZippingResponseWriter {
	compressor := zipWriterPool.Get().(*gzip.Writer)
	compressor.Reset(response)
	return &ZippingResponseWriter{
		ResponseWriter: response,
		compressor:     compressor,
	}
}

// WriteHeader sets the HTTP status code for the response.
func (z *ZippingResponseWriter) WriteHeader(statusCode int) {
	if statusCode < 300 {
		z.Header().Set("Content-Encoding", "gzip")
	}
	z.ResponseWriter.WriteHeader(statusCode)
}

// Write writes gzip-compressed data to the response body.
func (z *ZippingResponseWriter) Write(p []byte) (int, error) {
	return z.compressor.Write(p)
}

// Close flushes the compressor and returns it to the pool.
func (z *ZippingResponseWriter) Close() error {
	if err := z.compressor.Close(); err != nil {
		return err
	}
	zipWriterPool.Put(z.compressor)
	return nil
}

// ZipResponse is the middleware that compresses the response body when the
// request's "Accept-Encoding" header allows gzip.
func ZipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		zippingResponse := NewZippingResponseWriter(response)
		defer zippingResponse.Close()

		h.ServeHTTP(zippingResponse, request)
	}

	return http.HandlerFunc(middleware)
}

// UnzipJSONRequest is the middleware that decompresses the request body when
// the request's Content-Encoding is "gzip". The handler down the chain reads
// plain JSON either way.
func UnzipJSONRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			unzippingBody, err := NewUnzippingReader(request.Body)
			if err != nil {
				response.WriteHeader(http.StatusInternalServerError)
				return
			}
			request.Body = unzippingBody
			defer unzippingBody.Close()
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}
