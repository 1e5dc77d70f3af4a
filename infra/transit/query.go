package transit

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kilianp07/homecoming/core/model"
)

// Query builds the search parameters for a trip departing at now. The minute
// is sent as two digits: m1 carries the tens and m2 the units.
func Query(from, to model.StationName, now time.Time) url.Values {
	minute := fmt.Sprintf("%02d", now.Minute())
	v := url.Values{}
	v.Set("from", from.String())
	v.Set("to", to.String())
	v.Set("kw", to.String())
	v.Set("y", fmt.Sprintf("%d", now.Year()))
	v.Set("m", fmt.Sprintf("%02d", int(now.Month())))
	v.Set("d", fmt.Sprintf("%02d", now.Day()))
	v.Set("hh", fmt.Sprintf("%02d", now.Hour()))
	v.Set("m1", minute[:1])
	v.Set("m2", minute[1:])
	v.Set("type", "1")
	v.Set("ticket", "ic")
	v.Set("expkind", "1")
	v.Set("ws", "2")
	v.Set("s", "0")
	return v
}
