package usecase

import "time"

// TradingWindow is a trading session expressed in minutes of the day.
// Both ends are inclusive.
type TradingWindow struct {
	OpenMinute  int `json:"open_minute"`
	CloseMinute int `json:"close_minute"`
}

func (w TradingWindow) contains(minute int) bool {
	return minute >= w.OpenMinute && minute <= w.CloseMinute
}

// DefaultTradingWindows are the morning (09:30-11:30) and afternoon
// (13:00-15:00) sessions.
var DefaultTradingWindows = []TradingWindow{
	{OpenMinute: 9*60 + 30, CloseMinute: 11*60 + 30},
	{OpenMinute: 13 * 60, CloseMinute: 15 * 60},
}

const DefaultMarketTimezone = "Asia/Shanghai"

// MarketCalendar classifies instants as trading time using a fixed weekly
// schedule. There is no holiday calendar.
type MarketCalendar struct {
	location *time.Location
	windows  []TradingWindow
}

func NewMarketCalendar(location *time.Location) *MarketCalendar {
	if location == nil {
		location = time.Local
	}
	return &MarketCalendar{
		location: location,
		windows:  DefaultTradingWindows,
	}
}

// LoadMarketCalendar resolves the named zone, falling back to the local zone
// when the tz database is unavailable.
func LoadMarketCalendar(timezone string) *MarketCalendar {
	if timezone == "" {
		timezone = DefaultMarketTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.Local
	}
	return NewMarketCalendar(loc)
}

func (c *MarketCalendar) IsTradingTime(t time.Time) bool {
	local := t.In(c.location)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}

	minute := local.Hour()*60 + local.Minute()
	for _, w := range c.windows {
		if w.contains(minute) {
			return true
		}
	}
	return false
}

func (c *MarketCalendar) Location() *time.Location {
	return c.location
}

func (c *MarketCalendar) Windows() []TradingWindow {
	out := make([]TradingWindow, len(c.windows))
	copy(out, c.windows)
	return out
}
