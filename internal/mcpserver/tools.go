package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/naviscope/naviscope/internal/discovery/reference"
	"github.com/naviscope/naviscope/internal/graph"
	"github.com/naviscope/naviscope/internal/naverr"
	"github.com/naviscope/naviscope/internal/query"
)

// Argument structs, one per tool, mirroring the teacher's pattern of a
// struct-per-tool with jsonschema description tags driving both MCP's
// own validation and the schema resource template in resources.go.

type IndexArgs struct {
	Force bool `json:"force" jsonschema:"description:Force a full re-index even if no changes are detected"`
}

type IndexStatusArgs struct{}

type GetSymbolsInFileArgs struct {
	FilePath string `json:"file_path" jsonschema:"required,description:The absolute path to the file to analyze"`
}

type FindImpactArgs struct {
	SymbolName string `json:"symbol_name" jsonschema:"required,description:The FQN or short name of the symbol to analyze for impact"`
}

type GetSymbolArgs struct {
	SymbolName string `json:"symbol_name" jsonschema:"required,description:The FQN or short name of the symbol to locate"`
	WithSource bool   `json:"with_source" jsonschema:"description:If true, includes the source code of the symbol in the response"`
}

type FindReferencesArgs struct {
	SymbolName string `json:"symbol_name" jsonschema:"required,description:The FQN of the symbol to find references to"`
}

type QueryArgs struct {
	Kind    string `json:"kind" jsonschema:"required,description:One of find, ls, cat, deps-out, deps-in, refs"`
	Pattern string `json:"pattern" jsonschema:"description:Regex pattern for find"`
	Expr    string `json:"expr" jsonschema:"description:Optional CEL filter expression for find"`
	FQN     string `json:"fqn" jsonschema:"description:Fully-qualified name for ls, cat, deps-out, deps-in, refs"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "index",
		Description: "Scans the workspace and rebuilds the code graph",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args IndexArgs) (*mcp.CallToolResult, any, error) {
		s.indexMu.RLock()
		currentStatus := s.indexStatus
		s.indexMu.RUnlock()

		if currentStatus == IndexStatusInProgress {
			return errorResult("Indexing already in progress"), nil, nil
		}

		if currentStatus == IndexStatusReady || currentStatus == IndexStatusFailed {
			s.indexMu.Lock()
			s.indexReady = make(chan struct{})
			s.indexMu.Unlock()
		}

		s.setIndexStatus(IndexStatusInProgress, nil)
		start := time.Now()

		stats, err := s.engine.Rebuild(ctx)
		duration := time.Since(start)
		if err != nil {
			s.indexMu.Lock()
			s.indexDuration = duration
			s.indexMu.Unlock()
			s.setIndexStatus(IndexStatusFailed, err)
			return errorResult(fmt.Sprintf("Indexing failed: %v", err)), nil, nil
		}

		s.indexMu.Lock()
		s.indexDuration = duration
		s.indexMu.Unlock()
		s.setIndexStatus(IndexStatusReady, nil)

		msg := fmt.Sprintf("Indexed %d files (version %d) in %.2fs, %d faults",
			stats.FilesTotal, stats.Version, duration.Seconds(), stats.Faults)
		return textResult(msg), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "index_status",
		Description: "Returns the current indexing status of the workspace",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args IndexStatusArgs) (*mcp.CallToolResult, any, error) {
		status, err, duration := s.GetIndexStatus()

		result := map[string]any{"status": string(status)}
		if duration > 0 {
			result["duration_seconds"] = duration.Seconds()
		}
		if err != nil {
			result["error"] = err.Error()
		}

		jsonBytes, _ := json.MarshalIndent(result, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_symbols_in_file",
		Description: "Returns the nodes the graph owns for a file",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args GetSymbolsInFileArgs) (*mcp.CallToolResult, any, error) {
		if res := s.awaitIndex(ctx); res != nil {
			return res, nil, nil
		}

		g := s.engine.Snapshot()
		ids := g.NodesForPath(args.FilePath)

		type SimpleNode struct {
			FQN   string `json:"fqn"`
			Name  string `json:"name"`
			Kind  string `json:"kind"`
			Range string `json:"range"`
		}
		var simple []SimpleNode
		for _, id := range ids {
			n, ok := g.Node(id)
			if !ok || n.Kind != graph.NodeKindCode {
				continue
			}
			loc := n.Code.Location
			simple = append(simple, SimpleNode{
				FQN:  n.FQN(),
				Name: n.ShortName(),
				Kind: n.Code.Kind.String(),
				Range: fmt.Sprintf("%d:%d-%d:%d", loc.Range.StartLine, loc.Range.StartCol,
					loc.Range.EndLine, loc.Range.EndCol),
			})
		}

		jsonBytes, _ := json.MarshalIndent(simple, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "find_impact",
		Description: "Finds downstream dependents of a symbol (deps-in)",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args FindImpactArgs) (*mcp.CallToolResult, any, error) {
		if res := s.awaitIndex(ctx); res != nil {
			return res, nil, nil
		}

		fqn, errRes := s.resolveSymbolFQN(args.SymbolName)
		if errRes != nil {
			return errRes, nil, nil
		}

		res, err := s.querySnapshot().Execute(ctx, query.Query{Kind: query.KindDepsIn, FQN: fqn})
		if err != nil {
			return errorResult(fmt.Sprintf("Query failed: %v", err)), nil, nil
		}
		summaries := res.([]query.NodeSummary)
		if len(summaries) == 0 {
			return textResult("No impacted symbols found."), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(summaries, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_symbol",
		Description: "Finds the location and optionally the source code of a symbol",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args GetSymbolArgs) (*mcp.CallToolResult, any, error) {
		if res := s.awaitIndex(ctx); res != nil {
			return res, nil, nil
		}

		fqn, errRes := s.resolveSymbolFQN(args.SymbolName)
		if errRes != nil {
			return errRes, nil, nil
		}

		res, err := s.querySnapshot().Execute(ctx, query.Query{Kind: query.KindCat, FQN: fqn})
		if err != nil {
			return errorResult(fmt.Sprintf("Query failed: %v", err)), nil, nil
		}
		cat := res.(query.CatResult)

		type SymbolInfo struct {
			FQN    string `json:"fqn"`
			Path   string `json:"path"`
			Range  string `json:"range"`
			Kind   string `json:"kind"`
			Source string `json:"source,omitempty"`
		}
		info := SymbolInfo{
			FQN:  fqn,
			Path: cat.Path,
			Range: fmt.Sprintf("%d:%d-%d:%d", cat.Range.StartLine, cat.Range.StartCol,
				cat.Range.EndLine, cat.Range.EndCol),
			Kind: cat.Classify,
		}
		if args.WithSource {
			source, err := readSource(cat.Path, cat.Range.StartLine, cat.Range.EndLine)
			if err != nil {
				s.logger.Sugar().Warnf("get_symbol: failed to read source for %s: %v", fqn, err)
			} else {
				info.Source = source
			}
		}

		jsonBytes, _ := json.MarshalIndent(info, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "find_references",
		Description: "Runs two-phase reference discovery for a symbol",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args FindReferencesArgs) (*mcp.CallToolResult, any, error) {
		if res := s.awaitIndex(ctx); res != nil {
			return res, nil, nil
		}

		g := s.engine.Snapshot()
		id, ok := g.FindByFQN(args.SymbolName)
		if !ok {
			return errorResult(fmt.Sprintf("Symbol not found: %s", args.SymbolName)), nil, nil
		}
		n, _ := g.Node(id)
		target := reference.NewTarget(id, n)

		faults := naverr.NewFaultLog(s.logger)
		locs := s.finder.FindReferences(ctx, g, target, faults)

		jsonBytes, _ := json.MarshalIndent(locs, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "query",
		Description: "Runs a raw query DSL request (find/ls/cat/deps-out/deps-in/refs) against the current graph",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args QueryArgs) (*mcp.CallToolResult, any, error) {
		if res := s.awaitIndex(ctx); res != nil {
			return res, nil, nil
		}

		res, err := s.querySnapshot().Execute(ctx, query.Query{
			Kind:    query.Kind(args.Kind),
			Pattern: args.Pattern,
			Expr:    args.Expr,
			FQN:     args.FQN,
		})
		if err != nil {
			return errorResult(fmt.Sprintf("Query failed: %v", err)), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(res, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})
}

// awaitIndex waits (with a bounded timeout) for the first index to
// complete, returning a ready-made error result if the wait or the build
// itself failed, nil otherwise.
func (s *Server) awaitIndex(ctx context.Context) *mcp.CallToolResult {
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.WaitForIndex(waitCtx); err != nil {
		status, indexErr, _ := s.GetIndexStatus()
		if indexErr != nil {
			return errorResult(fmt.Sprintf("Indexing failed: %v", indexErr))
		}
		if status == IndexStatusInProgress {
			return errorResult("Indexing in progress, please try again")
		}
		return errorResult(fmt.Sprintf("Indexing wait failed: %v", err))
	}
	return nil
}

// resolveSymbolFQN accepts either an exact FQN or a short name, resolving
// the latter via the current snapshot's name index. Ambiguous short
// names return the first match, consistent with find's own sort order.
func (s *Server) resolveSymbolFQN(symbolName string) (string, *mcp.CallToolResult) {
	g := s.engine.Snapshot()
	if _, ok := g.FindByFQN(symbolName); ok {
		return symbolName, nil
	}
	var summaries []query.NodeSummary
	for _, id := range g.NodesByName(symbolName) {
		if n, ok := g.Node(id); ok {
			summaries = append(summaries, query.NewNodeSummary(n))
		}
	}
	if len(summaries) == 0 {
		return "", errorResult(fmt.Sprintf("Symbol not found: %s", symbolName))
	}
	query.SortSummaries(summaries)
	return summaries[0].FQN, nil
}

func readSource(filePath string, lineStart, lineEnd int) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var builder strings.Builder
	scanner := bufio.NewScanner(f)
	currentLine := 0
	first := true
	for scanner.Scan() {
		if currentLine >= lineStart && currentLine <= lineEnd {
			if !first {
				builder.WriteByte('\n')
			}
			builder.Write(scanner.Bytes())
			first = false
		}
		if currentLine > lineEnd {
			break
		}
		currentLine++
	}

	if err := scanner.Err(); err != nil {
		return "", err
	}

	return builder.String(), nil
}
