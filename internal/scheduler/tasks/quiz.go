package tasks

import (
	"github.com/reelshelf/reelshelf/internal/config"
	"github.com/reelshelf/reelshelf/internal/recommend"
	"github.com/reelshelf/reelshelf/internal/scheduler"
)

// QuizJanitorID identifies the idle quiz session cleanup task.
const QuizJanitorID = "quiz-session-cleanup"

// RegisterQuizJanitorTask registers the task that drops idle quiz sessions.
func RegisterQuizJanitorTask(sched *scheduler.Scheduler, sessions *recommend.Sessions, cfg config.QuizConfig) error {
	cron := cfg.JanitorCron
	if cron == "" {
		cron = "*/5 * * * *"
	}

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          QuizJanitorID,
		Name:        "Quiz Session Cleanup",
		Description: "Discards recommendation quiz sessions that have been idle longer than the session TTL",
		Cron:        cron,
		Func:        sessions.Purge,
	})
}
