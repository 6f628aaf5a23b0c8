// utils/http.go
package utils

import (
	"net/http"
	"time"
)

var HTTPClient = &http.Client{
	Timeout: 20 * time.Second, // outbound feed calls fail, not hang
}
