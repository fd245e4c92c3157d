package service

import "familyquest/internal/models"

var taskLibrary = []models.TaskTemplate{
	{
		Key:         "clean_room",
		Title:       "Clean your room",
		Description: "Put toys away, make the bed and tidy the desk.",
		Category:    models.CategoryHelp,
		Difficulty:  models.DifficultyMedium,
		Points:      50,
		Emoji:       "🧹",
	},
	{
		Key:         "read_book",
		Title:       "Read a book",
		Description: "Read for 20 minutes and tell someone what happened in the story.",
		Category:    models.CategoryLearning,
		Difficulty:  models.DifficultyEasy,
		Points:      30,
		Emoji:       "📚",
	},
	{
		Key:         "help_dinner",
		Title:       "Help with dinner",
		Description: "Help set the table and prepare a simple part of dinner.",
		Category:    models.CategoryHelp,
		Difficulty:  models.DifficultyEasy,
		Points:      40,
		Emoji:       "🍳",
	},
	{
		Key:         "draw_picture",
		Title:       "Draw a picture",
		Description: "Draw your favourite place and give the picture a title.",
		Category:    models.CategoryCreative,
		Difficulty:  models.DifficultyMedium,
		Points:      45,
		Emoji:       "🎨",
	},
	{
		Key:         "morning_exercise",
		Title:       "Morning exercise",
		Description: "Do ten jumping jacks, ten squats and stretch for five minutes.",
		Category:    models.CategorySport,
		Difficulty:  models.DifficultyEasy,
		Points:      35,
		Emoji:       "🏃",
	},
}

func findTemplate(key string) (models.TaskTemplate, bool) {
	for _, t := range taskLibrary {
		if t.Key == key {
			return t, true
		}
	}
	return models.TaskTemplate{}, false
}
