package Notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"Atelier/Models"
	"Atelier/email"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// Service creates notification rows and pushes them to members'
// devices. Delivery is best effort: the producer obligation ends at one
// Notify call per logical event.
type Service struct {
	DB   *gorm.DB
	Mail Models.EmailConfig

	ctx       context.Context
	fcmClient *messaging.Client
}

func NewService(db *gorm.DB, mail Models.EmailConfig) *Service {
	return &Service{DB: db, Mail: mail, ctx: context.Background()}
}

// InitFirebase sets up the FCM client from a service account file.
// Without it notifications still land as rows, just without pushes.
func (s *Service) InitFirebase(credentialsFile string) error {
	opt := option.WithCredentialsFile(credentialsFile)

	app, err := firebase.NewApp(s.ctx, nil, opt)
	if err != nil {
		return fmt.Errorf("error initializing Firebase app: %v", err)
	}

	client, err := app.Messaging(s.ctx)
	if err != nil {
		return fmt.Errorf("error getting Messaging client: %v", err)
	}

	s.fcmClient = client
	log.Println("Firebase initialized successfully")
	return nil
}

// Notify creates one notification row and pushes it to the receiver's
// registered devices. Push failures are logged, never propagated.
func (s *Service) Notify(receiverID uint, ntype, category, title, content string, resourceID *uint) error {
	notification := Models.Notification{
		ReceiverID: receiverID,
		Type:       ntype,
		Category:   category,
		Title:      title,
		Content:    content,
		ResourceID: resourceID,
	}
	if err := s.DB.Create(&notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	s.push(receiverID, title, content)
	return nil
}

func (s *Service) push(receiverID uint, title, content string) {
	if s.fcmClient == nil {
		return
	}

	var tokens []Models.FCMToken
	if err := s.DB.Where("member_id = ?", receiverID).Find(&tokens).Error; err != nil {
		log.Printf("Failed to load FCM tokens for member %d: %v", receiverID, err)
		return
	}

	for _, token := range tokens {
		message := &messaging.Message{
			Token: token.Token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  content,
			},
		}
		if _, err := s.fcmClient.Send(s.ctx, message); err != nil {
			log.Printf("Error sending push to member %d: %v", receiverID, err)
		}
	}
}

// NotifySummary is the structured result of a notification sweep.
type NotifySummary struct {
	Candidates int `json:"candidates"`
	Sent       int `json:"sent"`
	Existing   int `json:"existing"`
	Failed     int `json:"failed"`
}

// NotifyDailyTasks tells each assignee about daily tasks generated
// today. Each task is announced at most once; re-running the job does
// not duplicate notifications.
func (s *Service) NotifyDailyTasks(today time.Time) (*NotifySummary, error) {
	day := Models.Day(today)

	var tasks []Models.DailyTask
	if err := s.DB.Where("task_date = ?", day).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to load today's daily tasks: %w", err)
	}

	summary := &NotifySummary{Candidates: len(tasks)}
	for i := range tasks {
		task := &tasks[i]

		var count int64
		err := s.DB.Model(&Models.Notification{}).
			Where("receiver_id = ? AND type = ? AND resource_id = ?",
				task.AssigneeID, Models.NotificationDailyTask, task.ID).
			Count(&count).Error
		if err != nil {
			log.Printf("Failed to check notification for daily task %d: %v", task.ID, err)
			summary.Failed++
			continue
		}
		if count > 0 {
			summary.Existing++
			continue
		}

		resourceID := task.ID
		err = s.Notify(task.AssigneeID, Models.NotificationDailyTask, Models.NotificationCategoryRecurring,
			"Today's task is ready", task.BasicTaskRequirements, &resourceID)
		if err != nil {
			log.Printf("Failed to notify member %d about daily task %d: %v", task.AssigneeID, task.ID, err)
			summary.Failed++
			continue
		}
		summary.Sent++
	}

	log.Printf("Daily task notifications: %d candidates, %d sent, %d already notified, %d failed",
		summary.Candidates, summary.Sent, summary.Existing, summary.Failed)
	return summary, nil
}

// RemindMissingReports nudges members who have today's daily tasks but
// no report yet: a notification row, a push, and a reminder mail when
// SMTP is configured.
func (s *Service) RemindMissingReports(today time.Time) (*NotifySummary, error) {
	day := Models.Day(today)

	var assigneeIDs []uint
	err := s.DB.Model(&Models.DailyTask{}).Where("task_date = ?", day).
		Distinct("assignee_id").Pluck("assignee_id", &assigneeIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load today's assignees: %w", err)
	}

	summary := &NotifySummary{Candidates: len(assigneeIDs)}
	for _, userID := range assigneeIDs {
		var count int64
		err := s.DB.Model(&Models.DailyReport{}).
			Where("user_id = ? AND report_date = ?", userID, day).Count(&count).Error
		if err != nil {
			log.Printf("Failed to check report for member %d: %v", userID, err)
			summary.Failed++
			continue
		}
		if count > 0 {
			summary.Existing++
			continue
		}

		err = s.Notify(userID, Models.NotificationReportReminder, Models.NotificationCategoryRecurring,
			"Daily report reminder", "You have not submitted today's report yet.", nil)
		if err != nil {
			log.Printf("Failed to remind member %d: %v", userID, err)
			summary.Failed++
			continue
		}
		summary.Sent++

		s.sendReminderMail(userID)
	}

	log.Printf("Report reminders: %d with tasks, %d reminded, %d already reported, %d failed",
		summary.Candidates, summary.Sent, summary.Existing, summary.Failed)
	return summary, nil
}

// NotifyBelowAverage alerts members the daily rollup flagged as
// trailing their department's mean progress. Each flagged member is
// alerted at most once per day; re-running the sweep is a no-op.
func (s *Service) NotifyBelowAverage(today time.Time) (*NotifySummary, error) {
	day := Models.Day(today)

	var members []Models.Member
	if err := s.DB.Where("below_average_flag = ?", true).Find(&members).Error; err != nil {
		return nil, fmt.Errorf("failed to load flagged members: %w", err)
	}

	summary := &NotifySummary{Candidates: len(members)}
	for i := range members {
		member := &members[i]

		var count int64
		err := s.DB.Model(&Models.Notification{}).
			Where("receiver_id = ? AND type = ? AND created_at >= ?",
				member.ID, Models.NotificationProgressAlert, day).
			Count(&count).Error
		if err != nil {
			log.Printf("Failed to check progress alert for member %d: %v", member.ID, err)
			summary.Failed++
			continue
		}
		if count > 0 {
			summary.Existing++
			continue
		}

		err = s.Notify(member.ID, Models.NotificationProgressAlert, Models.NotificationCategoryRecurring,
			"Progress check-in", "Your task progress is below your department's average today.", nil)
		if err != nil {
			log.Printf("Failed to send progress alert to member %d: %v", member.ID, err)
			summary.Failed++
			continue
		}
		summary.Sent++
	}

	log.Printf("Progress alerts: %d flagged, %d sent, %d already alerted, %d failed",
		summary.Candidates, summary.Sent, summary.Existing, summary.Failed)
	return summary, nil
}

func (s *Service) sendReminderMail(userID uint) {
	if s.Mail.SMTPServer == "" {
		return
	}

	var member Models.Member
	if err := s.DB.First(&member, userID).Error; err != nil || member.Email == "" {
		return
	}

	message := Models.EmailMessage{
		To:      []string{member.Email},
		Subject: "Daily report reminder",
		Body:    fmt.Sprintf("Hi %s,\n\nYou have not submitted today's report yet. Please file it before midnight.\n", member.Name),
	}
	if err := email.SendEmail(s.Mail, message); err != nil {
		log.Printf("Failed to send reminder mail to member %d: %v", userID, err)
	}
}

// CleanupExpired deletes recurring notifications older than today so
// reminders never pile up across days.
func (s *Service) CleanupExpired(today time.Time) (int64, error) {
	day := Models.Day(today)
	result := s.DB.Where("category = ? AND created_at < ?", Models.NotificationCategoryRecurring, day).
		Delete(&Models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clean up notifications: %w", result.Error)
	}
	log.Printf("Notification cleanup removed %d stale rows", result.RowsAffected)
	return result.RowsAffected, nil
}
