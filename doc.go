// Package smbsession manages an authenticated session to a single SMB/CIFS
// server and lazily enumerates its shares and directories.
//
// # Overview
//
// A Session owns one connection and one set of credentials. Login
// authenticates with a password, with an NT hash (pass-the-hash), or
// anonymously. When the server rejects supplied credentials with
// STATUS_LOGON_FAILURE or STATUS_PASSWORD_EXPIRED, the session clears them
// and falls back to a null session exactly once.
//
// # Basic Usage
//
//	sess, err := smbsession.New(&smbsession.Config{
//	    Server:   "10.0.0.5",
//	    Username: "bob",
//	    Password: "secret123",
//	    Domain:   "CORP",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close()
//
//	if !sess.Login(ctx, false).OK() {
//	    log.Fatal(sess.LastError())
//	}
//
//	for share := range sess.Shares(ctx) {
//	    for entry, err := range sess.Ls(ctx, share, `\`) {
//	        if err != nil {
//	            sess.Rebuild(ctx, err.Error())
//	            break
//	        }
//	        fmt.Println(share, entry.Name(), entry.Size())
//	    }
//	}
//
// # Failure Semantics
//
// Login and Rebuild never return errors; they return an Outcome and record
// the cause in LastError. Shares is best effort and stops quietly on
// failure. Ls yields a *ListingError, so the caller can rebuild and retry;
// ReadDir does that automatically for transient failures.
//
// # Concurrency
//
// A Session is not safe for concurrent use. Run one Session per server, each
// owned by a single goroutine.
package smbsession
