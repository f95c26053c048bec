package service

import (
	"time"

	"bakery-backoffice/internal/apperr"
	"bakery-backoffice/internal/repository"
)

// Order volume window, in calendar days.
const (
	DefaultVolumeDays = 7
	MaxVolumeDays     = 90
)

const dayLayout = "2006-01-02"

type DashboardService interface {
	GetOrderVolume(days int) ([]repository.OrderVolumeData, error)
	GetDashboardStats() (*repository.DashboardStats, error)
}

type dashboardService struct {
	statsRepo repository.StatsRepository
	now       func() time.Time
}

func NewDashboardService(statsRepo repository.StatsRepository) DashboardService {
	return &dashboardService{statsRepo: statsRepo, now: time.Now}
}

// GetOrderVolume reports the last days calendar days (UTC, today included),
// one entry per day. Days without orders are returned as zeros so charts
// get a continuous axis.
func (s *dashboardService) GetOrderVolume(days int) ([]repository.OrderVolumeData, error) {
	if days < 1 || days > MaxVolumeDays {
		return nil, apperr.Validation("days must be between 1 and %d", MaxVolumeDays)
	}

	now := s.now().UTC()
	startDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	rows, err := s.statsRepo.GetOrderVolume(startDate, now)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]repository.OrderVolumeData, len(rows))
	for _, r := range rows {
		// drivers differ in how DATE() scans into a string
		if len(r.Date) > len(dayLayout) {
			r.Date = r.Date[:len(dayLayout)]
		}
		byDay[r.Date] = r
	}

	out := make([]repository.OrderVolumeData, days)
	for i := range out {
		day := startDate.AddDate(0, 0, i).Format(dayLayout)
		out[i] = repository.OrderVolumeData{Date: day}
		if r, ok := byDay[day]; ok {
			out[i] = r
		}
	}
	return out, nil
}

func (s *dashboardService) GetDashboardStats() (*repository.DashboardStats, error) {
	return s.statsRepo.GetDashboardStats()
}
