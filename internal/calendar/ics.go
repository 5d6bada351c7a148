package calendar

import (
	"fmt"
	"strconv"

	ics "github.com/arran4/golang-ical"

	"github.com/hitoshi/sportcal/internal/model"
)

// uidDomain はVEVENTのUIDに付与するドメインサフィックス。
const uidDomain = "sport.innopolis.university"

// Serialize はカレンダードキュメントをiCalendar形式にシリアライズする。
// イベントはドキュメントの順序のまま出力され、入力が同一なら出力も
// バイト単位で同一になる。
func Serialize(doc *model.CalendarDocument) []byte {
	cal := ics.NewCalendar()
	cal.SetProductId(productID)
	cal.SetVersion("2.0")
	cal.SetMethod(ics.MethodPublish)
	cal.SetXWRCalName(doc.Name)
	cal.SetXWRTimezone(doc.Timezone)
	cal.SetXWRCalDesc(doc.Description)

	// X-WR-TOTAL-VEVENTS は非標準プロパティのため専用セッターがない
	cal.CalendarProperties = append(cal.CalendarProperties, ics.CalendarProperty{
		BaseProperty: ics.BaseProperty{
			IANAToken: "X-WR-TOTAL-VEVENTS",
			Value:     strconv.Itoa(doc.TotalEvents()),
		},
	})

	for _, ev := range doc.Events {
		vevent := cal.AddEvent(fmt.Sprintf("%d@%s", ev.EventID, uidDomain))
		vevent.SetSummary(ev.Title)
		vevent.SetStartAt(ev.Start)
		vevent.SetEndAt(ev.End)
		vevent.SetDtStampTime(doc.GeneratedAt)
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		vevent.SetDescription(ev.Description)
	}

	return []byte(cal.Serialize())
}
