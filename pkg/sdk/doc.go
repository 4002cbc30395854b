// Package sdk provides a typed Go client for the superbrain completion API.
//
// The client carries the session transparently: the server assigns a session
// on the first call, the client captures it from the X-Session-ID header and
// echoes it on every call after that.
//
//	client, _ := sdk.New(sdk.WithBaseURL("http://localhost:8080"))
//	reply, _ := client.Send(ctx, "What is the capital of France?")
//	fmt.Println(reply.Reply, "remaining:", reply.Usage.Remaining)
//
// Free sessions are limited. A refusal surfaces as ErrQuotaExceeded and the
// session can be upgraded with the unlock code:
//
//	_, err := client.Send(ctx, "One more question")
//	if errors.Is(err, sdk.ErrQuotaExceeded) {
//	    res, _ := client.Unlock(ctx, os.Getenv("PREMIUM_ACCESS_CODE"))
//	    if res.Unlocked {
//	        reply, _ = client.Send(ctx, "One more question")
//	    }
//	}
//
// A session survives the process when its ID is kept:
//
//	id := client.SessionID()
//	later, _ := sdk.New(sdk.WithBaseURL(url), sdk.WithSessionID(id))
package sdk
