package service

import (
	"context"
	"strings"

	"familyquest/internal/database"
	"familyquest/internal/generator"
	"familyquest/internal/logger"
	"familyquest/internal/models"
	"familyquest/internal/repository"
	"familyquest/internal/validation"
)

// TaskSuggester is the generation backend. *generator.Client implements it.
type TaskSuggester interface {
	SuggestTask(ctx context.Context, req generator.Request) (models.TaskProposal, error)
	SuggestQuest(ctx context.Context, profile generator.ChildProfile, count int) ([]models.TaskProposal, error)
}

// Suggestion is a validated proposal and where it came from
type Suggestion struct {
	Proposal models.TaskProposal `json:"proposal"`
	Source   models.TaskSource   `json:"source"`
	Emoji    string              `json:"emoji"`
}

// SuggestionService produces task ideas. Backend failures never reach the
// caller: the static library answers instead.
type SuggestionService struct {
	accounts  *repository.AccountRepository
	generator TaskSuggester
	log       *logger.Logger
}

// NewSuggestionService creates a new suggestion service. gen may be nil, in
// which case every suggestion comes from the static library.
func NewSuggestionService(db database.Querier, gen TaskSuggester, log *logger.Logger) *SuggestionService {
	return &SuggestionService{
		accounts:  repository.NewAccountRepository(db),
		generator: gen,
		log:       log,
	}
}

// Suggest proposes one task for the child
func (s *SuggestionService) Suggest(ctx context.Context, childID int64, category string, difficulty models.Difficulty) (*Suggestion, error) {
	child, err := s.child(ctx, childID)
	if err != nil {
		return nil, err
	}

	category = strings.ToLower(strings.TrimSpace(category))
	if category != "" {
		if err := validation.ValidateCategory(category); err != nil {
			return nil, err
		}
	} else {
		category = generator.PickCategory(child.Interests)
	}
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}
	if err := validation.ValidateDifficulty(difficulty); err != nil {
		return nil, err
	}

	if s.generator != nil {
		proposal, err := s.generator.SuggestTask(ctx, generator.Request{
			Profile:    profileOf(child),
			Category:   category,
			Difficulty: difficulty,
		})
		if err == nil {
			if p, ok := s.accept(proposal, category); ok {
				p.Category = category
				return &Suggestion{Proposal: p, Source: models.SourceGenerated, Emoji: models.CategoryEmoji(p.Category)}, nil
			}
		} else {
			s.log.Warn("task generator failed, using fallback", "child_id", childID, "error", err)
		}
	}

	p := generator.Fallback(category)
	return &Suggestion{Proposal: p, Source: models.SourceFallback, Emoji: models.CategoryEmoji(p.Category)}, nil
}

// MaxQuestTasks bounds a single quest request.
const MaxQuestTasks = 5

// SuggestQuest proposes a small set of varied tasks for the day
func (s *SuggestionService) SuggestQuest(ctx context.Context, childID int64, count int) ([]Suggestion, error) {
	child, err := s.child(ctx, childID)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = DefaultDailyTasks
	}
	if count > MaxQuestTasks {
		count = MaxQuestTasks
	}

	var out []Suggestion
	if s.generator != nil {
		proposals, err := s.generator.SuggestQuest(ctx, profileOf(child), count)
		if err != nil {
			s.log.Warn("task generator failed, using fallback quest", "child_id", childID, "error", err)
		}
		for _, proposal := range proposals {
			if p, ok := s.accept(proposal, generator.PickCategory(child.Interests)); ok {
				out = append(out, Suggestion{Proposal: p, Source: models.SourceGenerated, Emoji: models.CategoryEmoji(p.Category)})
			}
		}
	}
	if len(out) > 0 {
		return out, nil
	}

	for _, p := range generator.FallbackQuest(child.Interests, count) {
		out = append(out, Suggestion{Proposal: p, Source: models.SourceFallback, Emoji: models.CategoryEmoji(p.Category)})
	}
	return out, nil
}

func (s *SuggestionService) child(ctx context.Context, childID int64) (*models.Account, error) {
	child, err := s.accounts.GetByID(ctx, childID)
	if err != nil {
		return nil, err
	}
	if child == nil || !child.IsChild() {
		return nil, ErrChildNotFound
	}
	return child, nil
}

// accept applies manual-task validation to backend output
func (s *SuggestionService) accept(p models.TaskProposal, category string) (models.TaskProposal, bool) {
	if validation.ValidateTaskTitle(p.Title) != nil || validation.ValidateTaskDescription(p.Description) != nil {
		s.log.Warn("discarding invalid generated task")
		return models.TaskProposal{}, false
	}
	if p.Category == "" || validation.ValidateCategory(p.Category) != nil {
		p.Category = category
	}
	if p.EstimatedMinutes < 0 || p.EstimatedMinutes > 240 {
		p.EstimatedMinutes = 0
	}
	return p, true
}

func profileOf(child *models.Account) generator.ChildProfile {
	return generator.ChildProfile{
		Name:      child.DisplayName,
		Age:       child.Age,
		Interests: child.Interests,
	}
}
