// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
)

// =============================================================================
// TEST SERVER
// =============================================================================

type execHandler func(command string, stdout, stderr io.Writer) uint32

type testServer struct {
	addr  string
	conns atomic.Int32
}

func startServer(t *testing.T, handler execHandler) *testServer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == "alice" && string(pass) == "secret" {
				return nil, nil
			}
			return nil, errors.New("access denied")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	srv := &testServer{addr: ln.Addr().String()}
	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			srv.conns.Add(1)
			go serveConn(nc, cfg, handler)
		}
	}()
	return srv
}

func serveConn(nc net.Conn, cfg *ssh.ServerConfig, handler execHandler) {
	defer nc.Close()
	_, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			newCh.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go func(ch ssh.Channel, chReqs <-chan *ssh.Request) {
			for req := range chReqs {
				if req.Type != "exec" {
					req.Reply(false, nil)
					continue
				}
				var payload struct{ Command string }
				if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
					req.Reply(false, nil)
					continue
				}
				req.Reply(true, nil)
				go func() {
					status := handler(payload.Command, ch, ch.Stderr())
					ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
					ch.Close()
				}()
			}
		}(ch, chReqs)
	}
}

type staticCreds struct {
	c  Credentials
	ok bool
}

func (s staticCreds) Load() (Credentials, bool) { return s.c, s.ok }

func login(addr string) staticCreds {
	return staticCreds{c: Credentials{Hostname: addr, Username: "alice", Password: "secret"}, ok: true}
}

// =============================================================================
// RUNNER TESTS
// =============================================================================

func TestExecute_ReturnsStdout(t *testing.T) {
	srv := startServer(t, func(cmd string, stdout, _ io.Writer) uint32 {
		io.WriteString(stdout, "ran: "+cmd+"\n")
		return 0
	})

	out, err := NewRunner(login(srv.addr)).Execute(context.Background(), "ollama --version")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out != "ran: ollama --version\n" {
		t.Errorf("out = %q", out)
	}
}

func TestExecute_NonZeroExit(t *testing.T) {
	srv := startServer(t, func(_ string, _, stderr io.Writer) uint32 {
		io.WriteString(stderr, "ollama: not found\n")
		return 127
	})

	_, err := NewRunner(login(srv.addr)).Execute(context.Background(), "ollama serve")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", err)
	}
	if exitErr.Code != 127 || exitErr.Stderr != "ollama: not found" {
		t.Errorf("exitErr = %+v", exitErr)
	}
	if got := err.Error(); got != "command failed with exit code 127: ollama: not found" {
		t.Errorf("Error() = %q", got)
	}
}

func TestExecute_NoCredentials(t *testing.T) {
	srv := startServer(t, func(string, io.Writer, io.Writer) uint32 { return 0 })

	_, err := NewRunner(staticCreds{}).Execute(context.Background(), "true")
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("error = %v, want ErrNoCredentials", err)
	}
	if err.Error() != "SSH credentials not configured." {
		t.Errorf("message = %q", err.Error())
	}
	if srv.conns.Load() != 0 {
		t.Error("connection attempted without credentials")
	}
}

func TestExecute_WrongPassword(t *testing.T) {
	srv := startServer(t, func(string, io.Writer, io.Writer) uint32 { return 0 })
	creds := login(srv.addr)
	creds.c.Password = "wrong"

	_, err := NewRunner(creds).Execute(context.Background(), "true")
	if err == nil || !strings.Contains(err.Error(), "handshake") {
		t.Fatalf("error = %v, want handshake failure", err)
	}
}

func TestExecute_Timeout(t *testing.T) {
	srv := startServer(t, func(_ string, stdout, _ io.Writer) uint32 {
		time.Sleep(500 * time.Millisecond)
		return 0
	})

	start := time.Now()
	_, err := NewRunner(login(srv.addr), WithCommandTimeout(100*time.Millisecond)).
		Execute(context.Background(), "sleep 60")
	if !errors.Is(err, ErrCommandTimeout) {
		t.Fatalf("error = %v, want ErrCommandTimeout", err)
	}
	if time.Since(start) > 400*time.Millisecond {
		t.Errorf("Execute took %v", time.Since(start))
	}
}

func TestExecute_UsesConfiguredPort(t *testing.T) {
	srv := startServer(t, func(_ string, stdout, _ io.Writer) uint32 {
		io.WriteString(stdout, "ok")
		return 0
	})
	host, portStr, _ := net.SplitHostPort(srv.addr)
	port, _ := strconv.Atoi(portStr)

	creds := login(host)
	out, err := NewRunner(creds, WithPort(port)).Execute(context.Background(), "true")
	if err != nil || out != "ok" {
		t.Fatalf("Execute() = %q, %v", out, err)
	}
}

func TestExecute_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = NewRunner(login(addr)).Execute(context.Background(), "true")
	if err == nil || !strings.Contains(err.Error(), "connect to") {
		t.Fatalf("error = %v", err)
	}
}

// =============================================================================
// CREDENTIAL TESTS
// =============================================================================

func TestCredentials_Address(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"192.168.1.20", "192.168.1.20:22"},
		{"phone.local:8022", "phone.local:8022"},
		{" box ", "box:22"},
		{"::1", "[::1]:22"},
		{"[::1]:2200", "[::1]:2200"},
	}
	for _, tt := range tests {
		if got := (Credentials{Hostname: tt.host}).Address(22); got != tt.want {
			t.Errorf("Address(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestCredentialStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewCredentialStore(dir)

	if _, ok := store.Load(); ok {
		t.Fatal("Load() ok on empty store")
	}

	want := Credentials{Hostname: "10.0.0.3:8022", Username: "u0_a123", Password: "p w"}
	if err := store.Save(want); err != nil {
		t.Fatal(err)
	}

	got, ok := NewCredentialStore(dir).Load()
	if !ok || got != want {
		t.Errorf("Load() = %+v, %v", got, ok)
	}
}

func TestCredentialStore_MissingFieldMeansNone(t *testing.T) {
	store := NewCredentialStore(t.TempDir())
	if err := store.Store().PutString(KeyHostname, "host"); err != nil {
		t.Fatal(err)
	}
	if err := store.Store().PutString(KeyUsername, "user"); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Load(); ok {
		t.Error("Load() ok without a password")
	}
}
