package lsp

// Request and Response are the wire shapes Client.call marshals and
// unmarshals; every LSP exchange Naviscope issues (initialize,
// textDocument/references, textDocument/definition) rides over these two
// envelopes.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// InitializeParams is the handshake Client.Start sends before issuing any
// other request. Naviscope never advertises capabilities beyond the
// defaults: it only ever calls the two read-only methods below, never
// textDocument/didOpen, so a spawned server sees no file state it didn't
// already have on disk.
type InitializeParams struct {
	ProcessID    int                `json:"processId,omitempty"`
	RootURI      string             `json:"rootUri,omitempty"`
	Capabilities ClientCapabilities `json:"capabilities"`
}

// ClientCapabilities is left empty: Naviscope's LSP client is a
// definition/reference lookup tool, not a full editor client, so it
// advertises nothing a server would otherwise gate behind capability
// negotiation.
type ClientCapabilities struct{}

type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Location is the shape both textDocument/references and
// textDocument/definition return: a file URI plus the span within it.
// GraphSemanticResolver's LSP-backed counterpart (reference.
// LSPSemanticResolver) and discovery.LSPEnricher both decode server
// replies into this type before converting back to Naviscope's own
// graph.Location via URIToPath.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// ReferenceParams is textDocument/references' request shape, used by
// Client.References. Phase B's LSP-backed SemanticResolver
// (reference.LSPSemanticResolver) calls Client.Definition, not
// Client.References.
type ReferenceParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
	Context      ReferenceContext       `json:"context"`
}

// ReferenceContext.IncludeDeclaration is always false on the Naviscope
// side: the declaration itself is already in the graph from Phase 2, so
// asking the server to also report it would just be a duplicate the
// Finder would have to filter back out.
type ReferenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

// DefinitionParams is textDocument/definition's request shape, used by
// Client.Definition — both Phase B's LSP resolver and the Discovery
// Pipeline's placeholder-enrichment pass (discovery.LSPEnricher).
type DefinitionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}
