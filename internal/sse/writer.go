package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type Writer struct {
	w http.ResponseWriter
}

// NewWriter 设置 SSE 响应头并立即刷出，保证连接尽早建立
func NewWriter(w http.ResponseWriter) *Writer {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	return &Writer{w: w}
}

func (s *Writer) Write(event, data string) error {
	if event != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}

	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}

	return nil
}

// WriteJSON 把载荷序列化为 JSON 后写出一帧
func (s *Writer) WriteJSON(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.Write(event, string(data))
}
