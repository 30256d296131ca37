package leave

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

const icsProductID = "-//warp//leave-tracker//EN"

// ICS renders r as a single all-day iCalendar event stamped at now. DTEND is
// exclusive, so it is the day after End; when End does not parse the event
// covers Start only. An unparseable Start is an ErrInvalidDate.
func ICS(r Request, now time.Time) (string, error) {
	start, err := ParseDate(r.Start)
	if err != nil {
		return "", fmt.Errorf("request %d start %q: %w", r.ID, r.Start, ErrInvalidDate)
	}
	end := start
	if t, err := ParseDate(r.End); err == nil && !t.Before(start) {
		end = t
	}

	cal := ics.NewCalendar()
	cal.SetProductId(icsProductID)
	cal.SetMethod(ics.MethodPublish)

	event := cal.AddEvent(fmt.Sprintf("request-%d@leave-tracker", r.ID))
	event.SetDtStampTime(now.UTC())
	event.SetSummary(oneLine(fmt.Sprintf("%s: %s", r.Category, r.Name)))
	event.SetAllDayStartAt(start)
	event.SetAllDayEndAt(end.AddDate(0, 0, 1))
	event.SetStatus(ics.ObjectStatusConfirmed)

	return cal.Serialize(), nil
}

// oneLine folds bare CRs into LF, which the encoder escapes as \n.
func oneLine(s string) string {
	return strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(s)
}
