// Package httpclient is the outbound HTTP transport used to talk to peer
// registry servers. Requests are JSON-encoded, responses are classified
// into typed errors, and retry, circuit breaking and concurrency limits
// from the resilience package are applied when configured.
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "http://peer1:8761/eureka/",
//	    Timeout: 5 * time.Second,
//	    Retry:   httpclient.DefaultRetryConfig(),
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "peerreplication/batch/",
//	    Body:   batch,
//	})
package httpclient
