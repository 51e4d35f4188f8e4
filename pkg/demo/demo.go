// Package demo provides the built-in sample roadmap shown when no data source
// is reachable.
package demo

import (
	"time"

	"github.com/vanderheijden86/roadwork/pkg/model"
)

// RoadmapID is the ID of the demo roadmap.
const RoadmapID = "demo-fullstack"

// Roadmap returns a fresh copy of the "Full-Stack Developer" demo roadmap.
// The data is deterministic; callers may mutate the result freely.
func Roadmap() *model.Roadmap {
	created := time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
	rm := &model.Roadmap{
		ID:          RoadmapID,
		Title:       "Full-Stack Developer",
		Description: "From web fundamentals to shipping production services.",
		Owner:       "demo",
		CreatedAt:   created,
		UpdatedAt:   created,
		Nodes: []model.Node{
			{ID: "p-foundations", Title: "Foundations", Type: model.TypePhase, Importance: 1,
				Description: "Core web platform knowledge.", Duration: "3 months", Completed: true},
			{ID: "m-web-basics", Title: "Web Basics", Type: model.TypeMilestone, Parent: "p-foundations", Importance: 0.9,
				Description: "Build static pages that work everywhere.", Duration: "4 weeks", Completed: true},
			{ID: "s-html", Title: "HTML", Type: model.TypeSkill, Parent: "m-web-basics", Importance: 0.8,
				Difficulty: "beginner", Skills: []string{"semantics", "forms", "accessibility"}, Completed: true,
				Resources: []string{"https://developer.mozilla.org/docs/Web/HTML"}},
			{ID: "s-css", Title: "CSS", Type: model.TypeSkill, Parent: "m-web-basics", Importance: 0.8,
				Difficulty: "beginner", Skills: []string{"flexbox", "grid", "responsive design"}, Completed: true,
				Resources: []string{"https://developer.mozilla.org/docs/Web/CSS"}},
			{ID: "s-js", Title: "JavaScript", Type: model.TypeSkill, Parent: "m-web-basics", Importance: 0.9,
				Difficulty: "intermediate", Skills: []string{"DOM", "async/await", "modules"}},
			{ID: "m-tooling", Title: "Developer Tooling", Type: model.TypeMilestone, Parent: "p-foundations", Importance: 0.6,
				Description: "Version control and the command line.", Duration: "2 weeks"},
			{ID: "s-git", Title: "Git", Type: model.TypeSkill, Parent: "m-tooling", Importance: 0.7,
				Difficulty: "beginner", Skills: []string{"branching", "rebasing", "pull requests"}},
			{ID: "c-web-course", Title: "Web Development Bootcamp", Type: model.TypeCourse, Parent: "p-foundations", Importance: 0.5,
				Duration: "8 weeks", Description: "Structured intro course covering the whole phase."},

			{ID: "p-backend", Title: "Backend", Type: model.TypePhase, Importance: 0.9,
				Description: "Servers, storage and APIs.", Duration: "4 months"},
			{ID: "m-apis", Title: "APIs", Type: model.TypeMilestone, Parent: "p-backend", Importance: 0.9,
				Description: "Design and build HTTP APIs.", Duration: "6 weeks"},
			{ID: "s-go", Title: "Go", Type: model.TypeSkill, Parent: "m-apis", Importance: 0.8,
				Difficulty: "intermediate", Skills: []string{"net/http", "concurrency", "testing"}},
			{ID: "s-rest", Title: "REST Design", Type: model.TypeSkill, Parent: "m-apis", Importance: 0.7,
				Difficulty: "intermediate", Skills: []string{"resources", "status codes", "pagination"}},
			{ID: "m-data", Title: "Databases", Type: model.TypeMilestone, Parent: "p-backend", Importance: 0.8,
				Description: "Model and query data.", Duration: "4 weeks"},
			{ID: "s-sql", Title: "SQL", Type: model.TypeSkill, Parent: "m-data", Importance: 0.8,
				Difficulty: "intermediate", Skills: []string{"joins", "indexes", "transactions"}},
			{ID: "s-postgres", Title: "PostgreSQL", Type: model.TypeSkill, Parent: "m-data", Importance: 0.6,
				Difficulty: "intermediate"},
			{ID: "pr-todo-api", Title: "Todo API", Type: model.TypeProject, Parent: "p-backend", Importance: 0.7,
				Description: "A small REST service backed by **PostgreSQL** with auth.", Duration: "2 weeks"},

			{ID: "p-career", Title: "Going Pro", Type: model.TypePhase, Importance: 0.8,
				Description: "Production practice and getting hired.", Duration: "3 months"},
			{ID: "m-deploy", Title: "Deployment", Type: model.TypeMilestone, Parent: "p-career", Importance: 0.8,
				Description: "Ship and operate services.", Duration: "4 weeks"},
			{ID: "s-docker", Title: "Docker", Type: model.TypeSkill, Parent: "m-deploy", Importance: 0.7,
				Difficulty: "intermediate"},
			{ID: "s-ci", Title: "CI/CD", Type: model.TypeSkill, Parent: "m-deploy", Importance: 0.6,
				Difficulty: "intermediate"},
			{ID: "cert-cloud", Title: "Cloud Practitioner", Type: model.TypeCertification, Parent: "p-career", Importance: 0.5,
				Duration: "3 weeks", Description: "Entry-level cloud certification."},
			{ID: "i-internship", Title: "Engineering Internship", Type: model.TypeInternship, Parent: "p-career", Importance: 0.9,
				Duration: "12 weeks", Description: "Work on a real team."},
		},
		Connections: []model.Connection{
			{From: "p-foundations", To: "p-backend", Relation: model.RelationSequence},
			{From: "p-backend", To: "p-career", Relation: model.RelationSequence},
			{From: "p-foundations", To: "m-web-basics"},
			{From: "p-foundations", To: "m-tooling"},
			{From: "m-web-basics", To: "s-html"},
			{From: "m-web-basics", To: "s-css"},
			{From: "m-web-basics", To: "s-js"},
			{From: "m-tooling", To: "s-git"},
			{From: "s-js", To: "s-go", Relation: model.RelationPrerequisite},
			{From: "p-backend", To: "m-apis"},
			{From: "p-backend", To: "m-data"},
			{From: "m-apis", To: "s-go"},
			{From: "m-apis", To: "s-rest"},
			{From: "m-data", To: "s-sql"},
			{From: "s-sql", To: "s-postgres", Relation: model.RelationPrerequisite},
			{From: "s-rest", To: "pr-todo-api", Relation: model.RelationPrerequisite},
			{From: "s-postgres", To: "pr-todo-api", Relation: model.RelationPrerequisite},
			{From: "p-career", To: "m-deploy"},
			{From: "m-deploy", To: "s-docker"},
			{From: "m-deploy", To: "s-ci"},
			{From: "pr-todo-api", To: "i-internship", Relation: model.RelationPrerequisite},
			{From: "s-docker", To: "cert-cloud", Relation: model.RelationPrerequisite},
		},
	}
	rm.RefreshProgress()
	return rm
}
