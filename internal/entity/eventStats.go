package entity

// EventStats содержит сводную статистику по мероприятию
type EventStats struct {
	Event         Event              `json:"event"`
	Types         []TypeAvailability `json:"types"`
	TicketsByStatus map[TicketStatus]int `json:"tickets_by_status"`
	WaitlistDepth int                `json:"waitlist_depth"`
}

// UtilizationRate вычисляет долю занятых мест (0.0 до 1.0)
func (s *EventStats) UtilizationRate() float64 {
	if s.Event.TotalCapacity == 0 {
		return 0.0
	}
	return float64(s.Event.RegisteredCount) / float64(s.Event.TotalCapacity)
}

// CheckInRate вычисляет долю отмеченных на входе среди занятых мест
func (s *EventStats) CheckInRate() float64 {
	if s.Event.RegisteredCount == 0 {
		return 0.0
	}
	return float64(s.Event.CheckedInCount) / float64(s.Event.RegisteredCount)
}
