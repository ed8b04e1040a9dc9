package utils

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"lms/config"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Generic Send Email
func SendEmail(to []string, subject string, htmlBody string) error {
	if config.AppConfig == nil || config.AppConfig.SendGridAPIKey == "" {
		log.Printf("[EMAIL] SendGrid not configured, skipping %q to %v", subject, to)
		return nil
	}
	appName := config.AppConfig.AppName

	p := sgmail.NewPersonalization()
	p.Subject = "[" + appName + "] " + subject
	for _, addr := range to {
		p.AddTos(sgmail.NewEmail("", addr))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(appName, config.AppConfig.EmailSender))
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/html", htmlBody))

	req := sendgrid.GetRequest(config.AppConfig.SendGridAPIKey, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	log.Printf("[EMAIL] Sending %q to %v", subject, to)
	res, err := sendgrid.API(req)
	if err != nil {
		log.Printf("[EMAIL] Error sending email: %v", err)
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		log.Printf("[EMAIL] SendGrid rejected email: %d %s", res.StatusCode, res.Body)
		return fmt.Errorf("sendgrid responded %d", res.StatusCode)
	}
	return nil
}

func getEmailTemplate(title string, bodyContent string) string {
	appName := "LMS"
	if config.AppConfig != nil {
		appName = config.AppConfig.AppName
	}
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #1F3A5F; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; }
			.content { padding: 40px 30px; color: #1F3A5F; line-height: 1.6; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #4A90D9; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>%s</h1></div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">This is an automated message, please do not reply.</div>
		</div>
	</body>
	</html>
	`, appName, title, bodyContent)
}

// --- Triggers ---

func SendCourseCompletedEmail(email, name, courseTitle string) {
	subject := "Course Completed: " + courseTitle
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Congratulations! You have completed <strong>%s</strong>.</p>
		<p>You can now request your certificate from the course page.</p>
	`, name, courseTitle)

	go SendEmail([]string{email}, subject, getEmailTemplate("Course Completed", body))
}

func SendActivityGradedEmail(email, name, activityTitle string, score, maxScore float64) {
	subject := "Graded: " + activityTitle
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your submission for <strong>%s</strong> has been graded.</p>
		<div class="info-box"><strong>Score:</strong> %.2f / %.2f</div>
	`, name, activityTitle, score, maxScore)

	go SendEmail([]string{email}, subject, getEmailTemplate("Submission Graded", body))
}

func SendCertificateEmail(email, name, courseTitle, certNumber string) {
	subject := "Certificate Issued: " + courseTitle
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>Your certificate for <strong>%s</strong> has been issued.</p>
		<div class="info-box"><strong>Certificate number:</strong> %s</div>
	`, name, courseTitle, certNumber)

	go SendEmail([]string{email}, subject, getEmailTemplate("Certificate Issued", body))
}

func SendDueReminderEmail(email, name, activityTitle string, dueDate time.Time) {
	subject := "Reminder: " + activityTitle + " is due soon"
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p><strong>%s</strong> is due on <strong>%s</strong> and has not been submitted yet.</p>
	`, name, activityTitle, dueDate.Format("02 Jan 2006 15:04"))

	go SendEmail([]string{email}, subject, getEmailTemplate("Activity Due Soon", body))
}
