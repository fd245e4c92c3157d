package generator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"familyquest/internal/models"
)

const systemPrompt = "You are a kind assistant who invents short, safe, age-appropriate activities for children. " +
	"Always answer with JSON only."

var categoryPrompts = map[string]string{
	models.CategoryCreative: "a creative activity (drawing, modelling, building)",
	models.CategoryScience:  "a simple science experiment or observation",
	models.CategorySport:    "physical exercise or an active game",
	models.CategoryHelp:     "helping around the house or helping parents",
	models.CategoryLearning: "learning something from school subjects",
	models.CategoryNature:   "an outdoor activity or caring for plants",
}

var difficultyPrompts = map[models.Difficulty]string{
	models.DifficultyEasy:   "easy, 10-15 minutes",
	models.DifficultyMedium: "medium, 20-30 minutes",
	models.DifficultyHard:   "hard, 40-60 minutes",
}

// PickCategory chooses a category from a child's interests, falling back
// to creative when none of them is a known category.
func PickCategory(interests []string) string {
	for _, interest := range interests {
		if _, ok := categoryPrompts[interest]; ok {
			return interest
		}
	}
	return models.CategoryCreative
}

func taskPrompt(req Request) string {
	category := req.Category
	if category == "" {
		category = PickCategory(req.Profile.Interests)
	}
	kind, ok := categoryPrompts[category]
	if !ok {
		kind = fmt.Sprintf("an activity about %s", category)
	}
	level, ok := difficultyPrompts[req.Difficulty]
	if !ok {
		level = difficultyPrompts[models.DifficultyMedium]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Invent one task for a child named %s, age %d.\n", profileName(req.Profile), req.Profile.Age)
	if len(req.Profile.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s.\n", strings.Join(req.Profile.Interests, ", "))
	}
	fmt.Fprintf(&b, "Kind of task: %s.\nDifficulty: %s.\n", kind, level)
	b.WriteString("The task must be safe, doable at home and fun.\n")
	b.WriteString(`Respond with a JSON object: {"title": string, "description": string, "materials": [string], ` +
		`"estimated_time": minutes as integer, "tips": [string], "photo_opportunity": boolean}`)
	return b.String()
}

func questPrompt(profile ChildProfile, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invent %d different tasks for a child named %s, age %d.\n", count, profileName(profile), profile.Age)
	if len(profile.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s.\n", strings.Join(profile.Interests, ", "))
	}
	b.WriteString("Use different categories from: creative, science, sport, help, learning, nature.\n")
	b.WriteString(`Respond with a JSON array of objects: {"title": string, "description": string, "category": string, ` +
		`"materials": [string], "estimated_time": minutes as integer, "tips": [string], "photo_opportunity": boolean}`)
	return b.String()
}

func profileName(p ChildProfile) string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return "the child"
}

type wireProposal struct {
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	Materials        []string        `json:"materials"`
	EstimatedTime    json.RawMessage `json:"estimated_time"`
	Tips             []string        `json:"tips"`
	PhotoOpportunity bool            `json:"photo_opportunity"`
}

func (w wireProposal) toProposal() (models.TaskProposal, error) {
	title := strings.TrimSpace(w.Title)
	description := strings.TrimSpace(w.Description)
	if title == "" || description == "" {
		return models.TaskProposal{}, fmt.Errorf("%w: missing title or description", ErrInvalidResponse)
	}
	return models.TaskProposal{
		Title:            title,
		Description:      description,
		Category:         strings.ToLower(strings.TrimSpace(w.Category)),
		Materials:        compact(w.Materials),
		EstimatedMinutes: parseMinutes(w.EstimatedTime),
		Tips:             compact(w.Tips),
		PhotoOpportunity: w.PhotoOpportunity,
	}, nil
}

func parseProposal(payload string) (models.TaskProposal, error) {
	var w wireProposal
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return models.TaskProposal{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return w.toProposal()
}

func parseProposalList(payload string, limit int) ([]models.TaskProposal, error) {
	var items []wireProposal
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	proposals := make([]models.TaskProposal, 0, len(items))
	for _, item := range items {
		p, err := item.toProposal()
		if err != nil {
			continue
		}
		proposals = append(proposals, p)
		if len(proposals) == limit {
			break
		}
	}
	if len(proposals) == 0 {
		return nil, ErrInvalidResponse
	}
	return proposals, nil
}

// parseMinutes accepts 25, "25" or "25 minutes"; anything else is 0.
func parseMinutes(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.Atoi(fields[0])
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
