package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/labourline/internal/models"
	"github.com/yoockh/labourline/internal/providers/sms"
	"github.com/yoockh/labourline/internal/utils"
)

// NotificationService texts a caller their matches.
type NotificationService interface {
	SendMatches(ctx context.Context, to string, side models.MatchSide, matches []models.MatchCandidate, lang models.Language) error
}

type notificationService struct {
	sender     sms.Sender
	maxMatches int
	log        *logrus.Logger
}

func NewNotificationService(sender sms.Sender, maxMatches int, log *logrus.Logger) NotificationService {
	if maxMatches <= 0 {
		maxMatches = 2
	}
	return &notificationService{sender: sender, maxMatches: maxMatches, log: log}
}

func (n *notificationService) SendMatches(ctx context.Context, to string, side models.MatchSide, matches []models.MatchCandidate, lang models.Language) error {
	const op = "NotificationService.SendMatches"

	if to == "" {
		return utils.E(utils.CodeInvalidArgument, op, "destination is required", nil)
	}

	body := FormatMatches(side, matches, lang, n.maxMatches)
	sid, err := n.sender.Send(ctx, to, body)
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to send sms", err)
	}
	n.log.WithFields(logrus.Fields{"to": to, "sid": sid, "matches": len(matches)}).Info("sms sent")
	return nil
}

type smsText struct {
	greeting   string
	found      string // takes count and noun
	jobsNoun   string
	workerNoun string
	noMatch    string // takes noun
	noJob      string
	noWorker   string
}

var smsTexts = map[models.Language]smsText{
	models.LanguageEnglish: {
		greeting:   "Hello!",
		found:      "%d %s found:",
		jobsNoun:   "jobs",
		workerNoun: "workers",
		noMatch:    "Sorry, no %s found. Try again later.",
		noJob:      "jobs",
		noWorker:   "workers",
	},
	models.LanguageKannada: {
		greeting:   "ನಮಸ್ಕಾರ!",
		found:      "%d %s ಸಿಕ್ಕಿತು:",
		jobsNoun:   "ಉದ್ಯೋಗಗಳು",
		workerNoun: "ಕಾರ್ಮಿಕರು",
		noMatch:    "ಕ್ಷಮಿಸಿ, %s ಸಿಗಲಿಲ್ಲ। ನಂತರ ಪ್ರಯತ್ನಿಸಿ.",
		noJob:      "ಉದ್ಯೋಗ",
		noWorker:   "ಕಾರ್ಮಿಕರು",
	},
	models.LanguageHindi: {
		greeting:   "नमस्ते!",
		found:      "%d %s मिले:",
		jobsNoun:   "नौकरियां",
		workerNoun: "कामगार",
		noMatch:    "क्षमा करें, कोई %s नहीं मिली। बाद में पुनः प्रयास करें।",
		noJob:      "नौकरी",
		noWorker:   "कामगार",
	},
}

// NoMatchMessage is the text sent when a search found nobody.
func NoMatchMessage(side models.MatchSide, lang models.Language) string {
	t := smsTexts[lang.OrDefault()]
	noun := t.noJob
	if side == models.SideWorkers {
		noun = t.noWorker
	}
	return fmt.Sprintf(t.noMatch, noun)
}

// FormatMatches renders up to limit candidates as a compact SMS body.
//
//	jobs:    "1. Electrician(Bangalore) ₹600 Ph:+91..."
//	workers: "1. Ravi-Electrician(Bangalore) Ph:+91..."
func FormatMatches(side models.MatchSide, matches []models.MatchCandidate, lang models.Language, limit int) string {
	if len(matches) == 0 {
		return NoMatchMessage(side, lang)
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	t := smsTexts[lang.OrDefault()]
	noun := t.jobsNoun
	if side == models.SideWorkers {
		noun = t.workerNoun
	}

	var b strings.Builder
	b.WriteString(t.greeting)
	b.WriteString(" ")
	fmt.Fprintf(&b, t.found, len(matches), noun)

	for i, m := range matches {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d. ", i+1)
		if side == models.SideWorkers {
			name := m.Name
			if name == "" {
				name = "Worker"
			}
			b.WriteString(name + "-" + m.Skill)
		} else {
			b.WriteString(m.Skill)
		}
		if m.Location != "" {
			b.WriteString("(" + m.Location + ")")
		}
		if side == models.SideJobs && m.Wage != nil {
			fmt.Fprintf(&b, " ₹%d", *m.Wage)
		}
		b.WriteString(" Ph:" + m.PhoneNo)
	}
	return b.String()
}
