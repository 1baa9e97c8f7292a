package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/task-tracker/modules/activity"
	"github.com/example/task-tracker/modules/identity"
	"github.com/example/task-tracker/modules/ratelimit"
	"github.com/example/task-tracker/modules/taskstore"
	"github.com/example/task-tracker/modules/web"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Task Tracker ===")

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	limiter := ratelimit.NewModule(ratelimit.FromEnv()...)
	webModule := web.NewModule()
	webModule.SetCredentialLimiter(limiter.Handler())

	// Order: independent modules first, then dependent modules
	app.Register(identity.NewModule())  // Provides sign-up, sign-in and session services
	app.Register(taskstore.NewModule()) // Provides owner-scoped task storage, emits task events
	app.Register(activity.NewModule())  // Consumes task events
	app.Register(limiter)               // Throttles credential routes when REDIS_ADDR is set
	app.Register(webModule)             // Depends on identity, taskstore and activity

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Routes:")
	log.Println("  GET    /login, /signup        - 303 to /tasks when already signed in")
	log.Println("  POST   /login                 - email, password, remember=on")
	log.Println("  POST   /signup                - email, password, confirmPassword")
	log.Println("  GET    /auth/confirm?token=   - confirm an account (IDENTITY_CONFIRM_EMAIL=true)")
	log.Println("  GET    /tasks                 - list your tasks (303 to /login when signed out)")
	log.Println("  GET    /tasks/activity        - recent task activity")
	log.Println("  POST   /tasks/create          - title, priority, due_date, description, status")
	log.Println("  POST   /tasks/update          - id plus any task fields")
	log.Println("  POST   /tasks/delete          - id")
	log.Println("  POST   /tasks/logout          - sign out")
	log.Println("  GET    /healthz               - health check")
	log.Println("")
	log.Println("Form actions are also accepted as POST /tasks?/create, ?/update, ?/delete, ?/logout")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
