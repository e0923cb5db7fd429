package LLM

import "fmt"

// PreviousDay describes the prior day's task outcome for the daily task
// generation prompt.
type PreviousDay struct {
	HasTask    bool
	Completed  bool
	TaskDetail string
	ReportText string
}

// DailyTaskPrompt builds the prompt that derives today's task from the
// period task requirements and the previous day's outcome.
func DailyTaskPrompt(periodDetail string, prev PreviousDay) string {
	previous := "No previous day's task."
	if prev.HasTask {
		status := "not completed"
		if prev.Completed {
			status = "completed"
		}
		report := prev.ReportText
		if report == "" {
			report = "none"
		}
		previous = fmt.Sprintf("Task content: %s\nCompletion status: %s\nCompletion report: %s",
			prev.TaskDetail, status, report)
	}

	return fmt.Sprintf(`Analyze the period task and generate today's task plan based on the previous day's outcome.

Period task detailed requirements:
%s

Previous day's task:
%s

Generate today's plan so that:
1. It builds on the previous day's progress and completion state.
2. The new task is a natural continuation of the previous day's work.
3. Difficulty increases gradually.
4. The content serves the overall goal of the period task.

Produce:
1. A one-sentence summary of today's task.
2. Detailed steps and requirements, including concrete work items and expected completion criteria.

Separate the summary and the detailed steps with a blank line.`, periodDetail, previous)
}

// ProgressPrompt builds the evaluation prompt for the daily progress
// value. The returned value must never be lower than history.
func ProgressPrompt(periodDetail string, history float64, reportText string) string {
	return fmt.Sprintf(`You are a task progress evaluator. Estimate how far today's work advances the overall task.

Task requirements:
%s

Historical progress: %.0f%%

Today's work:
%s

Evaluation rules:
1. Progress only increases or stays the same; never return a value below the historical progress of %.0f%%.
2. The value must be a number between 0 and 100.
3. Reflect the actual completion state; do not be optimistic.
4. If today's work does not materially advance the task, keep the historical value.
5. Weigh how relevant today's work is to the requirements, its quality, and how much it moves the overall goal.

Return a single number between 0 and 100 as the current overall progress. Return only the number, with no explanation, formatting or JSON.
If the work cannot be assessed or is unrelated to the task, return %.0f.`,
		periodDetail, history, reportText, history, history)
}

// ReportReviewPrompt builds the JSON review prompt for a submitted
// daily report.
func ReportReviewPrompt(taskSummaries, taskDetails, completed, reportText string) string {
	return fmt.Sprintf(`You are a studio work-report reviewer. Grade today's report against the assigned tasks.

Task summaries:
%s

Task details:
%s

Previously completed work:
%s

Today's report:
%s

Return a JSON object with exactly this shape:
{
  "basic":  {"status": "<one-line remark>", "score": <0-100>},
  "excess": {"status": "<one-line remark>", "score": <0-10>},
  "extra":  {"status": "<one-line remark>", "score": <0-5>},
  "efficiency": <0-100>,
  "innovation": <0-100>,
  "total":  {"status": "<overall remark>", "score": <number>}
}

"basic" grades required work, "excess" work beyond the requirement,
"extra" initiative outside the task scope. Return only the JSON object.`,
		taskSummaries, taskDetails, completed, reportText)
}
