package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"Atelier/CronJobs"
	"Atelier/FiberConfig"
	"Atelier/LLM"
	"Atelier/Models"
	"Atelier/Notifications"
	"Atelier/TaskEngine"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	Models.Connect()
	db := Models.DB

	tz := os.Getenv("TIMEZONE")
	if tz == "" {
		tz = "Asia/Shanghai"
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		log.Fatal("Invalid TIMEZONE: ", err)
	}

	client := LLM.NewChatClient(os.Getenv("LLM_API_KEY"))
	gateway := LLM.NewGateway(client, db)

	notify := Notifications.NewService(db, Models.LoadEmailConfig())
	if creds := os.Getenv("FIREBASE_CREDENTIALS"); creds != "" {
		if err := notify.InitFirebase(creds); err != nil {
			log.Println("Firebase unavailable, push disabled:", err)
		}
	}

	jobs := &CronJobs.StudioJobs{
		Generator: TaskEngine.NewGenerator(db, gateway),
		Evaluator: TaskEngine.NewEvaluator(db, gateway),
		Finalizer: TaskEngine.NewFinalizer(db),
		Rollup:    TaskEngine.NewRollup(db),
		Notify:    notify,
		Location:  location,
	}

	scheduler := CronJobs.NewJobScheduler(location)
	if err := jobs.Register(scheduler); err != nil {
		log.Fatal("Failed to register jobs: ", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	deps := FiberConfig.Dependencies{
		DB:        db,
		Generator: jobs.Generator,
		Evaluator: jobs.Evaluator,
		Reviewer:  TaskEngine.NewReviewer(db, gateway),
		Scheduler: scheduler,
		Jobs:      jobs,
	}
	if err := FiberConfig.Serve(deps); err != nil {
		log.Fatal(err)
	}
}
