package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/labourline/internal/models"
	pgrepo "github.com/yoockh/labourline/internal/repositories/postgres"
)

// MatchQuery describes the profile being matched. Wage is the worker's
// preferred wage when searching jobs and the offered wage when searching workers.
type MatchQuery struct {
	Skill    string
	Location string
	Wage     *int
	Side     models.MatchSide
}

type MatchWeights struct {
	Location   float64
	Experience float64
	Skill      float64
}

func DefaultMatchWeights() MatchWeights {
	return MatchWeights{Location: 0.4, Experience: 0.3, Skill: 0.3}
}

// MatchingService ranks stored profiles of the opposite side against a query.
// It never fails: retrieval or scoring errors yield an empty result.
type MatchingService interface {
	FindMatches(ctx context.Context, q MatchQuery) []models.MatchCandidate
}

type matchingService struct {
	workers    pgrepo.WorkerRepository
	jobs       pgrepo.JobRepository
	weights    MatchWeights
	maxMatches int
	log        *logrus.Logger
}

func NewMatchingService(workers pgrepo.WorkerRepository, jobs pgrepo.JobRepository, weights MatchWeights, maxMatches int, log *logrus.Logger) MatchingService {
	if maxMatches <= 0 {
		maxMatches = 2
	}
	return &matchingService{
		workers:    workers,
		jobs:       jobs,
		weights:    weights,
		maxMatches: maxMatches,
		log:        log,
	}
}

func (m *matchingService) FindMatches(ctx context.Context, q MatchQuery) (out []models.MatchCandidate) {
	log := m.log.WithFields(logrus.Fields{"skill": q.Skill, "location": q.Location, "side": q.Side})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("matching panicked")
			out = []models.MatchCandidate{}
		}
	}()

	// an untranscribed trade would match every other untranscribed profile
	if !usableAnswer(q.Skill) {
		log.Info("no usable skill, skipping matching")
		return []models.MatchCandidate{}
	}

	var (
		candidates []models.MatchCandidate
		err        error
	)
	switch q.Side {
	case models.SideJobs:
		candidates, err = m.scoreJobs(ctx, q)
	case models.SideWorkers:
		candidates, err = m.scoreWorkers(ctx, q)
	default:
		err = fmt.Errorf("unknown match side %q", q.Side)
	}
	if err != nil {
		log.WithError(err).Error("matching failed")
		return []models.MatchCandidate{}
	}

	ranked := Rank(candidates, m.maxMatches)
	log.WithField("matches", len(ranked)).Info("matching done")
	return ranked
}

func (m *matchingService) scoreJobs(ctx context.Context, q MatchQuery) ([]models.MatchCandidate, error) {
	jobs, err := m.jobs.FindBySkill(ctx, q.Skill)
	if err != nil {
		return nil, err
	}
	out := make([]models.MatchCandidate, 0, len(jobs))
	for _, j := range jobs {
		rel := RelevanceTier(j.TypeOfWork, j.Description, q.Skill)
		loc := LocationTier(j.Location, q.Location)
		out = append(out, models.MatchCandidate{
			Side:          models.SideJobs,
			ProfileID:     j.ID,
			Skill:         j.TypeOfWork,
			Location:      j.Location,
			Wage:          j.WagesOffered,
			Organisation:  j.OrganisationName,
			PhoneNo:       j.PhoneNo,
			RelevanceTier: rel,
			LocationTier:  loc,
			Score:         JobScore(m.weights, rel, loc, j.WagesOffered, q.Wage),
		})
	}
	return out, nil
}

func (m *matchingService) scoreWorkers(ctx context.Context, q MatchQuery) ([]models.MatchCandidate, error) {
	workers, err := m.workers.FindBySkill(ctx, q.Skill)
	if err != nil {
		return nil, err
	}
	out := make([]models.MatchCandidate, 0, len(workers))
	for _, w := range workers {
		rel := RelevanceTier(w.WorkExpertise, w.Bio, q.Skill)
		loc := LocationTier(w.Location, q.Location)
		out = append(out, models.MatchCandidate{
			Side:          models.SideWorkers,
			ProfileID:     w.ID,
			Name:          w.Name,
			Skill:         w.WorkExpertise,
			Location:      w.Location,
			Wage:          w.PreferredWage,
			Experience:    w.Experience,
			PhoneNo:       w.PhoneNo,
			RelevanceTier: rel,
			LocationTier:  loc,
			Score:         WorkerScore(m.weights, rel, loc, w.Experience, w.PreferredWage, q.Wage),
		})
	}
	return out, nil
}

// RelevanceTier is 3 when the primary skill field contains q, 2 when only the
// free-text field does and 1 otherwise.
func RelevanceTier(primary, freeText, q string) int {
	q = strings.ToLower(strings.TrimSpace(q))
	switch {
	case strings.Contains(strings.ToLower(primary), q):
		return 3
	case strings.Contains(strings.ToLower(freeText), q):
		return 2
	default:
		return 1
	}
}

// LocationTier is 100 for an exact (case-insensitive) match, 50 when the
// candidate location contains q and 0 otherwise. An empty or unknown q
// matches nothing.
func LocationTier(candidate, q string) int {
	if !usableAnswer(q) {
		return 0
	}
	c := strings.ToLower(strings.TrimSpace(candidate))
	q = strings.ToLower(strings.TrimSpace(q))
	switch {
	case c == q:
		return 100
	case strings.Contains(c, q):
		return 50
	default:
		return 0
	}
}

func usableAnswer(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, UnknownValue)
}

func baseScore(w MatchWeights, relevance, location int) float64 {
	return float64(relevance)/3*100*w.Skill + float64(location)*w.Location
}

// JobScore scores a job for a worker who prefers preferredWage.
func JobScore(w MatchWeights, relevance, location int, offered, preferred *int) float64 {
	wage := 50.0
	if offered != nil && preferred != nil {
		if *offered >= *preferred {
			wage = 100
		} else {
			wage = float64(*offered) / float64(*preferred) * 100
		}
	}
	return clampScore(baseScore(w, relevance, location) + wage*w.Experience)
}

// WorkerScore scores a worker for a job offering offered. Workers asking more
// than 20% above the offer are penalised by 10%.
func WorkerScore(w MatchWeights, relevance, location int, experience, preferred, offered *int) float64 {
	exp := 30.0
	if experience != nil {
		exp = min(float64(*experience)/10*100, 100)
	}
	score := baseScore(w, relevance, location) + exp*w.Experience

	if offered != nil && preferred != nil && float64(*preferred) > float64(*offered)*1.2 {
		score *= 0.9
	}
	return clampScore(score)
}

func clampScore(s float64) float64 {
	return max(0, min(s, 100))
}

// Rank sorts candidates by descending score, keeping retrieval order for
// ties, and keeps at most n.
func Rank(candidates []models.MatchCandidate, n int) []models.MatchCandidate {
	out := make([]models.MatchCandidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
