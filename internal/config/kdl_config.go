package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from a .sge.kdl file. A missing
// file returns (nil, nil) so callers can fall through.
func LoadKDL(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, ".sge.kdl")

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read .sge.kdl: %w", err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	applyRoot(cfg, projectRoot)
	return cfg, nil
}

func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children { // project { root "." name "billing" }
				switch nodeName(cn) {
				case "root":
					if s, ok := firstStringArg(cn); ok {
						cfg.Project.Root = s
					}
				case "name":
					if s, ok := firstStringArg(cn); ok {
						cfg.Project.Name = s
					}
				}
			}
		case "resolver":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "preferred_namespaces":
					cfg.Resolver.PreferredNamespaces = collectStringArgs(cn)
				}
			}
		case "impact":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_depth":
					if v, ok := firstIntArg(cn); ok {
						cfg.Impact.MaxDepth = v
					}
				case "low_risk_threshold":
					if v, ok := firstIntArg(cn); ok {
						cfg.Impact.LowRiskThreshold = v
					}
				case "med_risk_threshold":
					if v, ok := firstIntArg(cn); ok {
						cfg.Impact.MedRiskThreshold = v
					}
				case "breaking_referrers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Impact.BreakingReferrers = v
					}
				}
			}
		case "graph":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "deferred_cap":
					if v, ok := firstIntArg(cn); ok {
						cfg.Graph.DeferredCap = v
					}
				}
			}
		case "stdlib":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "include":
					cfg.Stdlib.Include = collectStringArgs(cn)
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.DebounceMs = v
					}
				}
			}
		}
	}

	return cfg, nil
}

// Helper functions leveraging the kdl-go document model
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	// block format: strings appear as child node names
	if len(out) == 0 {
		for _, cn := range n.Children {
			if name := nodeName(cn); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}
