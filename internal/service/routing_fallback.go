package service

import (
	"fmt"
	"strings"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// Keyword-overlap routing used when the classifier is unavailable. Ties and
// zero matches default to IT, which owns general triage.

var itKeywords = []string{
	"access", "account", "computer", "crash", "email", "error", "install",
	"internet", "keyboard", "laptop", "login", "monitor", "network",
	"password", "printer", "screen", "server", "software", "update",
	"vpn", "wifi",
}

var hrKeywords = []string{
	"benefits", "bonus", "contract", "harassment", "holiday", "insurance",
	"leave", "manager", "maternity", "onboarding", "overtime", "payroll",
	"payslip", "pension", "policy", "recruitment", "resignation", "salary",
	"sick", "timesheet", "vacation",
}

func fallbackRoute(title, description string) domain.RouteDecision {
	content := strings.ToLower(title + " " + description)

	itScore := keywordScore(content, itKeywords)
	hrScore := keywordScore(content, hrKeywords)

	dept := domain.DepartmentIT
	if hrScore > itScore {
		dept = domain.DepartmentHR
	}

	margin := itScore - hrScore
	if margin < 0 {
		margin = -margin
	}
	confidence := 0.5 + 0.1*float64(margin)
	if confidence > 0.9 {
		confidence = 0.9
	}

	return domain.RouteDecision{
		Department: dept,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("keyword overlap: IT=%d HR=%d", itScore, hrScore),
	}
}

func keywordScore(content string, keywords []string) int {
	score := 0
	for _, kw := range keywords {
		if containsWord(content, kw) {
			score++
		}
	}
	return score
}
