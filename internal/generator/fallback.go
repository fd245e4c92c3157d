package generator

import "familyquest/internal/models"

var fallbackTasks = map[string]models.TaskProposal{
	models.CategoryCreative: {
		Title:       "Magic drawing",
		Description: "Draw a picture of your mood today using the brightest colours you have.",
	},
	models.CategoryScience: {
		Title:       "Rainbow in a glass",
		Description: "Make a rainbow in a glass with water and sugar. Find the recipe together with your parents.",
	},
	models.CategorySport: {
		Title:       "Obstacle course",
		Description: "Build an obstacle course from pillows, chairs and boxes, then complete it 3 times.",
	},
	models.CategoryHelp: {
		Title:       "Surprise for mum",
		Description: "Do something nice without being asked: tidy up, water the flowers or make some tea.",
	},
	models.CategoryLearning: {
		Title:       "Word detective",
		Description: "Find ten new words in a book and explain what each one means to someone at home.",
	},
	models.CategoryNature: {
		Title:       "Leaf collection",
		Description: "Collect five different leaves outside and find out which tree each one came from.",
	},
}

// Fallback returns a static proposal for the category. Unknown categories
// get the creative task.
func Fallback(category string) models.TaskProposal {
	p, ok := fallbackTasks[category]
	if !ok {
		category = models.CategoryCreative
		p = fallbackTasks[category]
	}
	p.Category = category
	p.Materials = []string{"things from home"}
	p.EstimatedMinutes = 30
	p.PhotoOpportunity = true
	return p
}

// FallbackQuest returns count static proposals cycling through the
// well-known categories, starting from the child's interests.
func FallbackQuest(interests []string, count int) []models.TaskProposal {
	if count <= 0 {
		count = 3
	}
	order := []string{PickCategory(interests)}
	for _, c := range []string{
		models.CategoryCreative, models.CategoryScience, models.CategorySport,
		models.CategoryHelp, models.CategoryLearning, models.CategoryNature,
	} {
		if c != order[0] {
			order = append(order, c)
		}
	}
	quest := make([]models.TaskProposal, 0, count)
	for i := 0; i < count; i++ {
		quest = append(quest, Fallback(order[i%len(order)]))
	}
	return quest
}
