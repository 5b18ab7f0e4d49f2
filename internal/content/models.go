package content

import (
	"strings"
	"time"
)

// Default statuses for newly created items.
const (
	ProjectStatusDefault      = "진행중"
	RegularStudyStatusDefault = "모집중"
)

// Record is the pointer side of a list-collection item. Repositories and
// services are generic over it.
type Record[T any] interface {
	*T
	GetID() string
	SetID(id string)
	// Normalize fills defaults and replaces nil lists with empty ones.
	Normalize()
	Validate() error
	Stamp(now time.Time)
}

// Project is a club project shown on the public site.
type Project struct {
	ID                string    `json:"id" bson:"id"`
	Title             string    `json:"title" bson:"title"`
	Description       string    `json:"description" bson:"description"`
	Status            string    `json:"status" bson:"status"`
	Progress          int       `json:"progress" bson:"progress"`
	Team              []string  `json:"team" bson:"team"`
	TechStack         []string  `json:"techStack" bson:"techStack"`
	StartDate         string    `json:"startDate" bson:"startDate"`
	EndDate           string    `json:"endDate" bson:"endDate"`
	Image             string    `json:"image" bson:"image"`
	Category          []string  `json:"category" bson:"category"`
	Difficulty        string    `json:"difficulty" bson:"difficulty"`
	DetailDescription []string  `json:"detailDescription" bson:"detailDescription"`
	Features          []string  `json:"features" bson:"features"`
	Challenges        []string  `json:"challenges" bson:"challenges"`
	CreatedAt         time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (p *Project) GetID() string   { return p.ID }
func (p *Project) SetID(id string) { p.ID = id }

func (p *Project) Normalize() {
	if p.Status == "" {
		p.Status = ProjectStatusDefault
	}
	emptyIfNil(&p.Team, &p.TechStack, &p.Category, &p.DetailDescription, &p.Features, &p.Challenges)
}

func (p *Project) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrTitleRequired
	}
	if p.Progress < 0 || p.Progress > 100 {
		return ErrInvalidProgress
	}
	return nil
}

func (p *Project) Stamp(now time.Time) { stamp(&p.CreatedAt, &p.UpdatedAt, now) }

// RegularStudy is a recurring study group. Team is a head count here, unlike
// Project.Team.
type RegularStudy struct {
	ID          string    `json:"id" bson:"id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Status      string    `json:"status" bson:"status"`
	StartDate   string    `json:"startDate" bson:"startDate"`
	EndDate     string    `json:"endDate" bson:"endDate"`
	Image       string    `json:"image" bson:"image"`
	Category    []string  `json:"category" bson:"category"`
	Link        string    `json:"link" bson:"link"`
	Team        int       `json:"team" bson:"team"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (s *RegularStudy) GetID() string   { return s.ID }
func (s *RegularStudy) SetID(id string) { s.ID = id }

func (s *RegularStudy) Normalize() {
	if s.Status == "" {
		s.Status = RegularStudyStatusDefault
	}
	emptyIfNil(&s.Category)
}

func (s *RegularStudy) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return ErrTitleRequired
	}
	if s.Team < 0 {
		return ErrInvalidTeamSize
	}
	return nil
}

func (s *RegularStudy) Stamp(now time.Time) { stamp(&s.CreatedAt, &s.UpdatedAt, now) }

// Study is the singleton curated-study page.
type Study struct {
	Header        StudyHeader    `json:"header" bson:"header"`
	Description   string         `json:"description" bson:"description"`
	InfoCards     []InfoCard     `json:"infoCards" bson:"infoCards"`
	StudyContent  []StudyContent `json:"studyContent" bson:"studyContent"`
	WeeklyStudies []WeeklyStudy  `json:"weeklyStudies" bson:"weeklyStudies"`
	Stats         StudyStats     `json:"stats" bson:"stats"`
	CreatedAt     time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt" bson:"updatedAt"`
}

type StudyHeader struct {
	Title       string `json:"title" bson:"title"`
	Description string `json:"description" bson:"description"`
	Icon        string `json:"icon" bson:"icon"`
}

type InfoCard struct {
	Icon    string `json:"icon" bson:"icon"`
	Title   string `json:"title" bson:"title"`
	Content string `json:"content" bson:"content"`
}

type StudyContent struct {
	Icon        string `json:"icon" bson:"icon"`
	Title       string `json:"title" bson:"title"`
	Description string `json:"description" bson:"description"`
}

type WeeklyStudy struct {
	Week int    `json:"week" bson:"week"`
	Date string `json:"date" bson:"date"`
	Href string `json:"href" bson:"href"`
}

type StudyStats struct {
	TotalSessions string     `json:"totalSessions" bson:"totalSessions"`
	BasicTrack    TrackStats `json:"basicTrack" bson:"basicTrack"`
	AdvancedTrack TrackStats `json:"advancedTrack" bson:"advancedTrack"`
}

type TrackStats struct {
	Label   string `json:"label" bson:"label"`
	Current string `json:"current" bson:"current"`
}

func (s *Study) Normalize() {
	if s.InfoCards == nil {
		s.InfoCards = []InfoCard{}
	}
	if s.StudyContent == nil {
		s.StudyContent = []StudyContent{}
	}
	if s.WeeklyStudies == nil {
		s.WeeklyStudies = []WeeklyStudy{}
	}
}

func (s *Study) Stamp(now time.Time) { stamp(&s.CreatedAt, &s.UpdatedAt, now) }

func emptyIfNil(lists ...*[]string) {
	for _, l := range lists {
		if *l == nil {
			*l = []string{}
		}
	}
}

func stamp(created, updated *time.Time, now time.Time) {
	if created.IsZero() {
		*created = now
	}
	*updated = now
}
