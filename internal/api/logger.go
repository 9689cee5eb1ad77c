package api

import (
	"log"
	"time"
)

// LogRequest logs an API request being made.
func LogRequest(method, path string, params map[string]interface{}) {
	if len(params) > 0 {
		log.Printf("[api] %s %s params=%v", method, path, params)
	} else {
		log.Printf("[api] %s %s", method, path)
	}
}

// LogResponse logs an API response received.
func LogResponse(method, path string, statusCode int, duration time.Duration) {
	log.Printf("[api] %s %s status=%d duration=%dms",
		method, path, statusCode, duration.Milliseconds())
}

// LogError logs an error from an API operation.
func LogError(operation string, err error) {
	log.Printf("[api] %s error: %v", operation, err)
}
