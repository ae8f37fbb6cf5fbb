package boot

import (
	"context"
	"errors"
	"falcontour/src/common"
	"falcontour/src/config"
	"falcontour/src/db"
	"falcontour/src/lib"
	"falcontour/src/models"
	"falcontour/src/services"
	"io"
	"log"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(models.Schema()...)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitBroker starts the queue consumers when mail is delivered through SQS.
func InitBroker(ctx context.Context, cfg *config.Config) {
	if cfg.MailDriver != "sqs" {
		return
	}
	common.SQSConsumers(ctx, cfg)
}

// InitScheduler registers the periodic expiry sweep and starts the scheduler.
func InitScheduler(app *services.App, cfg *config.Config) {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	if cfg.ExpirySweep > 0 {
		_, err := lib.CreateCronJob("expiry-sweep", cfg.ExpirySweep, func() {
			n, err := app.Lifecycle.SweepExpired(context.Background())
			if err != nil {
				log.Printf("Error sweeping expired events: %s\n", err.Error())
				return
			}
			if n > 0 {
				log.Printf("Expiry sweep updated %d events\n", n)
			}
		})
		if err != nil {
			log.Printf("Error scheduling expiry sweep: %s\n", err.Error())
		}
	}
	log.Println("Jobs in queue:", len(sched.Jobs()))
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while shutting stopping Scheduler. Check logs for info")
		return
	}
}

// SeedAdmin creates the configured admin account on first boot.
func SeedAdmin(ctx context.Context, app *services.App, cfg *config.Config) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	if err := app.Users.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Printf("Error seeding admin %s: %s\n", cfg.AdminEmail, err.Error())
	}
}

type S3GetAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// DownloadSDKFile fetches the Firebase admin credentials into dir unless
// they are already present.
func DownloadSDKFile(ctx context.Context, client S3GetAPI, bucket, dir string) error {
	filename := "admin-sdk-credentials.json"
	sdkFilePath := path.Join(dir, filename)
	_, err := os.Stat(sdkFilePath)
	if err == nil {
		log.Println("File exists!")
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	log.Println("File not found. Downloading...")
	object, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(filename),
	})
	if err != nil {
		log.Printf("[S3] Error retrieving object: %s\n", err.Error())
		return err
	}
	defer object.Body.Close()
	body, err := io.ReadAll(object.Body)
	if err != nil {
		log.Printf("Couldn't read object body from %s: %s\n", filename, err.Error())
		return err
	}
	if err := os.WriteFile(sdkFilePath, body, 0o600); err != nil {
		log.Printf("Error writing to file: %s\n", err.Error())
		return err
	}
	log.Println("File has been written")
	return nil
}
