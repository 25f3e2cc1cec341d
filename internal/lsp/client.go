package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"sync"
)

// Client drives a single spawned language server subprocess over its
// stdin/stdout, using the JSON-RPC 2.0 framing ReadMessage/WriteMessage
// implement. It supplies the semantic resolution internal/discovery/
// reference's GraphSemanticResolver cannot: looking up what symbol a
// specific source position actually denotes via textDocument/definition,
// listing a position's uses via textDocument/references, and the
// initialize handshake every server needs before answering either.
type Client struct {
	cmd    *exec.Cmd
	stdin  *bufio.Writer
	stdout *bufio.Reader

	mu      sync.Mutex
	nextID  int
	pending map[int]chan *Response

	readErr chan error
}

// Start spawns command with args, rooted at workspaceRoot, and performs
// the initialize handshake. The caller owns the returned Client's
// lifetime and must call Close.
func Start(ctx context.Context, workspaceRoot, command string, args ...string) (*Client, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("lsp: start %s: %w", command, err)
	}

	c := &Client{
		cmd:     cmd,
		stdin:   bufio.NewWriter(stdin),
		stdout:  bufio.NewReader(stdout),
		pending: make(map[int]chan *Response),
		readErr: make(chan error, 1),
	}
	go c.readLoop()

	if _, err := c.call(ctx, "initialize", InitializeParams{
		RootURI:      pathToURI(workspaceRoot),
		Capabilities: ClientCapabilities{},
	}); err != nil {
		c.Close()
		return nil, fmt.Errorf("lsp: initialize: %w", err)
	}
	return c, nil
}

func (c *Client) readLoop() {
	for {
		raw, err := ReadMessage(c.stdout)
		if err != nil {
			c.readErr <- err
			return
		}
		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			continue // a malformed frame is dropped, not fatal to the session
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- &resp
		}
	}
}

func (c *Client) call(ctx context.Context, method string, params any) (*Response, error) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	ch := make(chan *Response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	req := Request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	if err := WriteMessage(c.stdin, req); err != nil {
		return nil, err
	}
	if err := c.stdin.Flush(); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("lsp: %s: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
		}
		return resp, nil
	case err := <-c.readErr:
		return nil, fmt.Errorf("lsp: transport closed: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// References runs textDocument/references for (path, line, col), zero-
// based, and returns the raw LSP locations the server reports.
func (c *Client) References(ctx context.Context, path string, line, col int) ([]Location, error) {
	resp, err := c.call(ctx, "textDocument/references", ReferenceParams{
		TextDocument: TextDocumentIdentifier{URI: pathToURI(path)},
		Position:     Position{Line: line, Character: col},
		Context:      ReferenceContext{IncludeDeclaration: false},
	})
	if err != nil {
		return nil, err
	}
	var locs []Location
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &locs); err != nil {
		return nil, fmt.Errorf("lsp: decode references result: %w", err)
	}
	return locs, nil
}

// Definition runs textDocument/definition. discovery.LSPEnricher calls
// this to resolve a placeholder's occurrence straight to its defining
// symbol without going through the graph's own (coarser) position
// lookup, which is all a cross-package reference has to go on until a
// server weighs in.
func (c *Client) Definition(ctx context.Context, path string, line, col int) ([]Location, error) {
	resp, err := c.call(ctx, "textDocument/definition", DefinitionParams{
		TextDocument: TextDocumentIdentifier{URI: pathToURI(path)},
		Position:     Position{Line: line, Character: col},
	})
	if err != nil {
		return nil, err
	}
	var locs []Location
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &locs); err != nil {
		return nil, fmt.Errorf("lsp: decode definition result: %w", err)
	}
	return locs, nil
}

// Close terminates the subprocess.
func (c *Client) Close() error {
	_ = c.stdin.Flush()
	return c.cmd.Process.Kill()
}

func pathToURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}

// URIToPath inverts pathToURI for locations a server returns.
func URIToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	return filepath.FromSlash(u.Path), nil
}
