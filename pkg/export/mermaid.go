package export

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/vanderheijden86/roadwork/pkg/model"
)

// Mermaid renders rm as a left-to-right Mermaid flowchart. Nodes keep the
// roadmap order; connections to unknown nodes are dropped.
func Mermaid(rm *model.Roadmap) string {
	var sb strings.Builder

	sb.WriteString("flowchart LR\n")
	sb.WriteString("    classDef phase fill:#BD93F9,stroke:#333,color:#000\n")
	sb.WriteString("    classDef milestone fill:#8BE9FD,stroke:#333,color:#000\n")
	sb.WriteString("    classDef item fill:#F1FA8C,stroke:#333,color:#000\n")
	sb.WriteString("    classDef done fill:#50FA7B,stroke:#333,color:#000\n")
	sb.WriteString("\n")

	if rm == nil || len(rm.Nodes) == 0 {
		sb.WriteString("    empty[\"No nodes\"]\n")
		return sb.String()
	}

	// Deterministic, collision-free Mermaid IDs.
	safeIDMap := make(map[string]string, len(rm.Nodes))
	usedSafe := make(map[string]bool, len(rm.Nodes))
	getSafeID := func(orig string) string {
		if safe, ok := safeIDMap[orig]; ok {
			return safe
		}
		safe := sanitizeMermaidID(orig)
		if usedSafe[safe] {
			h := fnv.New32a()
			_, _ = h.Write([]byte(orig))
			safe = fmt.Sprintf("%s_%x", safe, h.Sum32())
		}
		usedSafe[safe] = true
		safeIDMap[orig] = safe
		return safe
	}

	for _, n := range rm.Nodes {
		id := getSafeID(n.ID)
		lb, rb := mermaidShape(n.Type)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, lb, sanitizeMermaidText(n.Title), rb)

		class := "item"
		switch {
		case n.Completed:
			class = "done"
		case n.Type == model.TypePhase:
			class = "phase"
		case n.Type == model.TypeMilestone:
			class = "milestone"
		}
		fmt.Fprintf(&sb, "    class %s %s\n", id, class)
	}

	conns := rm.ValidConnections()
	if len(conns) > 0 {
		sb.WriteString("\n")
	}
	for _, c := range conns {
		link := "-.->"
		switch c.Relation {
		case model.RelationPrerequisite:
			link = "==>"
		case model.RelationSequence:
			link = "-->"
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", getSafeID(c.From), link, getSafeID(c.To))
	}

	return sb.String()
}

func mermaidShape(t model.NodeType) (string, string) {
	switch t {
	case model.TypePhase:
		return "[[", "]]"
	case model.TypeMilestone:
		return "([", "])"
	case model.TypeProject, model.TypeInternship:
		return "{{", "}}"
	case model.TypeCertification:
		return "[/", "/]"
	default:
		return "[", "]"
	}
}

func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "node"
	}
	return sb.String()
}

// sanitizeMermaidText strips characters that break Mermaid label syntax.
func sanitizeMermaidText(text string) string {
	replacer := strings.NewReplacer(
		"\"", "'",
		"[", "(",
		"]", ")",
		"{", "(",
		"}", ")",
		"<", "&lt;",
		">", "&gt;",
		"|", "/",
		"`", "'",
		"\n", " ",
		"\r", "",
	)
	result := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, replacer.Replace(text))
	return strings.TrimSpace(result)
}
