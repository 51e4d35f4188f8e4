// Package model defines the roadmap data types shared by layout, rendering,
// persistence and the UI.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NodeType classifies a roadmap node.
type NodeType string

const (
	TypePhase         NodeType = "phase"
	TypeMilestone     NodeType = "milestone"
	TypeSkill         NodeType = "skill"
	TypeProject       NodeType = "project"
	TypeCertification NodeType = "certification"
	TypeCourse        NodeType = "course"
	TypeInternship    NodeType = "internship"
)

// AllNodeTypes lists every valid node type in display order.
var AllNodeTypes = []NodeType{
	TypePhase, TypeMilestone, TypeSkill, TypeProject,
	TypeCertification, TypeCourse, TypeInternship,
}

// IsValid reports whether t is a known node type.
func (t NodeType) IsValid() bool {
	for _, known := range AllNodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Icon returns a single glyph used in compact terminal output.
func (t NodeType) Icon() string {
	switch t {
	case TypePhase:
		return "◆"
	case TypeMilestone:
		return "●"
	case TypeSkill:
		return "•"
	case TypeProject:
		return "▲"
	case TypeCertification:
		return "★"
	case TypeCourse:
		return "■"
	case TypeInternship:
		return "◎"
	default:
		return "?"
	}
}

// Relation tags for connections.
const (
	RelationPrerequisite = "prerequisite"
	RelationSequence     = "sequence"
)

// Sentinel errors.
var (
	ErrUnknownNode  = errors.New("unknown node")
	ErrDuplicateID  = errors.New("duplicate node id")
	ErrEmptyID      = errors.New("empty id")
	ErrInvalidType  = errors.New("invalid node type")
	ErrDanglingEdge = errors.New("connection references missing node")
)

// Vec3 is a computed node position. Z is zero for 2D layouts.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z,omitempty"`
}

// Node is a single unit of a roadmap.
type Node struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Type        NodeType `json:"type"`
	Description string   `json:"description,omitempty"`
	Duration    string   `json:"duration,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
	Resources   []string `json:"resources,omitempty"`
	Skills      []string `json:"skills,omitempty"`
	Importance  float64  `json:"importance,omitempty"`
	Completed   bool     `json:"completed"`
	Notes       string   `json:"notes,omitempty"`
	Parent      string   `json:"parent,omitempty"`
	Position    Vec3     `json:"position"`
}

// Validate checks the node's own fields.
func (n Node) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return ErrEmptyID
	}
	if !n.Type.IsValid() {
		return fmt.Errorf("%w: %q on node %s", ErrInvalidType, n.Type, n.ID)
	}
	return nil
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	out := n
	if n.Resources != nil {
		out.Resources = append([]string(nil), n.Resources...)
	}
	if n.Skills != nil {
		out.Skills = append([]string(nil), n.Skills...)
	}
	return out
}

// Connection is a directed edge between two nodes.
type Connection struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation,omitempty"`
}

// Roadmap is a titled collection of nodes and their connections.
type Roadmap struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections,omitempty"`
	Owner       string       `json:"owner,omitempty"`
	CreatedAt   time.Time    `json:"created_at,omitzero"`
	UpdatedAt   time.Time    `json:"updated_at,omitzero"`

	// Progress is a cached percentage. Always recompute via RefreshProgress.
	Progress int `json:"progress"`
}
