// internal/reminder/cadence.go
package reminder

// The pre-due cadence and the final-notice escalation point are fixed
// constants, kept for behavioral parity with the billing team's rollout.
// Overdue units get one message per day regardless of cadence.
var preDueCadence = map[int]bool{7: true, 3: true, 1: true, 0: true}

// FinalNoticeOffset is the signed day offset (days overdue = 10) at which the
// final-notice escalation fires, exactly once.
const FinalNoticeOffset = -10

// Stock template names the scheduler renders.
const (
	TemplatePaymentReminder = "payment_reminder"
	TemplateOverdueNotice   = "overdue_notice"
	TemplateFinalNotice     = "final_notice"
)

// onCadence reports whether a reminder fires at the signed day offset d.
func onCadence(d int) bool {
	if d < 0 {
		return true
	}
	return preDueCadence[d]
}
