package querycache

import "sync"

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Init installs the process-wide client for the application session,
// disposing any previous one.
func Init(opts Options) *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient != nil {
		defaultClient.Dispose()
	}
	defaultClient = New(opts)
	return defaultClient
}

// Default returns the process-wide client, or nil before Init.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultClient
}

// Shutdown disposes the process-wide client.
func Shutdown() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient != nil {
		defaultClient.Dispose()
		defaultClient = nil
	}
}
