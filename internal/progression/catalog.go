package progression

func DefaultBadges() []Badge {
	return []Badge{
		{ID: "words_1", Name: "First Word", Description: "Learn your first word", Icon: "🌱",
			Requirement: Requirement{Metric: MetricWordsLearned, Threshold: 1}, XPBonus: 10},
		{ID: "words_10", Name: "Word Collector", Description: "Learn 10 words", Icon: "📚",
			Requirement: Requirement{Metric: MetricWordsLearned, Threshold: 10}, XPBonus: 50},
		{ID: "words_50", Name: "Vocabulary Builder", Description: "Learn 50 words", Icon: "🏗️",
			Requirement: Requirement{Metric: MetricWordsLearned, Threshold: 50}, XPBonus: 150},
		{ID: "words_100", Name: "Lexicon", Description: "Learn 100 words", Icon: "📖",
			Requirement: Requirement{Metric: MetricWordsLearned, Threshold: 100}, XPBonus: 300},
		{ID: "mastered_10", Name: "Sharp Memory", Description: "Master 10 words", Icon: "🧠",
			Requirement: Requirement{Metric: MetricWordsMastered, Threshold: 10}, XPBonus: 100},
		{ID: "mastered_50", Name: "Word Master", Description: "Master 50 words", Icon: "🎓",
			Requirement: Requirement{Metric: MetricWordsMastered, Threshold: 50}, XPBonus: 400},
		{ID: "streak_3", Name: "Warming Up", Description: "Keep a 3 day streak", Icon: "🔥",
			Requirement: Requirement{Metric: MetricCurrentStreak, Threshold: 3}, XPBonus: 20},
		{ID: "streak_7", Name: "Week Warrior", Description: "Keep a 7 day streak", Icon: "📅",
			Requirement: Requirement{Metric: MetricCurrentStreak, Threshold: 7}, XPBonus: 70},
		{ID: "streak_30", Name: "Unstoppable", Description: "Keep a 30 day streak", Icon: "🏆",
			Requirement: Requirement{Metric: MetricCurrentStreak, Threshold: 30}, XPBonus: 300},
		{ID: "reviews_100", Name: "Diligent", Description: "Complete 100 reviews", Icon: "✅",
			Requirement: Requirement{Metric: MetricTotalReviews, Threshold: 100}, XPBonus: 50},
		{ID: "reviews_500", Name: "Relentless", Description: "Complete 500 reviews", Icon: "💪",
			Requirement: Requirement{Metric: MetricTotalReviews, Threshold: 500}, XPBonus: 200},
		{ID: "level_5", Name: "Rising Star", Description: "Reach level 5", Icon: "⭐",
			Requirement: Requirement{Metric: MetricLevel, Threshold: 5}, XPBonus: 100},
		{ID: "level_10", Name: "Polyglot", Description: "Reach level 10", Icon: "🌍",
			Requirement: Requirement{Metric: MetricLevel, Threshold: 10}, XPBonus: 500},
	}
}
