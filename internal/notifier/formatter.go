package notifier

import (
	"fmt"
	"html"
	"strings"

	"SurgeScreener/internal/model"
	"SurgeScreener/internal/recorder"
)

// maxListed caps the tickers printed in one message.
const maxListed = 30

var reasonOrder = []model.DropReason{
	model.ReasonRetained,
	model.ReasonRejected,
	model.ReasonFetchFailed,
	model.ReasonInsufficientData,
	model.ReasonTimeout,
	model.ReasonInternal,
}

// FormatScreenReport formats a screening run into a Telegram message.
func FormatScreenReport(snap *recorder.RunSnapshot) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>SurgeScreener</b> | %s | %s\n",
		snap.StartedAt.Format("2006-01-02 15:04"), html.EscapeString(snap.Layer)))
	b.WriteString(fmt.Sprintf("窗口: %s → %s\n\n",
		snap.WindowStart.Format("2006-01-02"), snap.WindowEnd.Format("2006-01-02")))

	b.WriteString(fmt.Sprintf("通过: <b>%d</b> / %d (%.1fs)\n",
		snap.Counts[model.ReasonRetained], snap.Total, snap.Duration.Seconds()))
	for _, r := range reasonOrder[1:] {
		if n := snap.Counts[r]; n > 0 {
			b.WriteString(fmt.Sprintf("  %s: %d\n", r, n))
		}
	}

	if len(snap.Passes) == 0 {
		b.WriteString("\n今日无放量标的")
		return b.String()
	}

	b.WriteString("\n📈 <b>放量标的:</b>\n")
	for i, p := range snap.Passes {
		if i == maxListed {
			b.WriteString(fmt.Sprintf("  … 另有 %d 只\n", len(snap.Passes)-maxListed))
			break
		}
		b.WriteString(fmt.Sprintf("  %s  %.2f (%+.2f%%)  量比 %.1fx  振幅 %.2f%%  成交额 %s\n",
			html.EscapeString(p.Ticker), p.DayClose, p.PriceChangePct,
			p.VolumeRatio(), p.DayRangePct, humanValue(p.DayValue)))
	}
	return b.String()
}

// FormatError formats a failed run notification.
func FormatError(err error) string {
	return fmt.Sprintf("⚠️ <b>筛选失败</b>\n%s", html.EscapeString(err.Error()))
}

func humanValue(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
