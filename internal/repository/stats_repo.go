package repository

import (
	"time"

	"bakery-backoffice/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type StatsRepository interface {
	GetDashboardStats() (*DashboardStats, error)
	GetOrderVolume(startDate, endDate time.Time) ([]OrderVolumeData, error)
}

// DashboardStats is the overview shown on the back-office home page
type DashboardStats struct {
	TotalIngredients int64            `json:"total_ingredients"`
	LowStockCount    int64            `json:"low_stock_count"`
	StockValuation   float64          `json:"stock_valuation"`
	TotalRecipes     int64            `json:"total_recipes"`
	OrdersByStatus   map[string]int64 `json:"orders_by_status"`
	CompletedRevenue float64          `json:"completed_revenue"`
}

// OrderVolumeData is one day of the order chart
type OrderVolumeData struct {
	Date    string  `json:"date"`
	Orders  int64   `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type statsRepo struct {
	db *gorm.DB
}

func NewStatsRepo(db *gorm.DB) StatsRepository {
	return &statsRepo{db}
}

func (r *statsRepo) GetDashboardStats() (*DashboardStats, error) {
	stats := DashboardStats{OrdersByStatus: map[string]int64{}}

	if err := r.db.Model(&model.Ingredient{}).Count(&stats.TotalIngredients).Error; err != nil {
		return nil, errors.Wrap(err, "count ingredients")
	}
	if err := r.db.Model(&model.Ingredient{}).Where("units_on_hand < minimum_level").Count(&stats.LowStockCount).Error; err != nil {
		return nil, errors.Wrap(err, "count low stock")
	}
	if err := r.db.Model(&model.Ingredient{}).Select("COALESCE(SUM(units_on_hand * cost_price), 0)").Scan(&stats.StockValuation).Error; err != nil {
		return nil, errors.Wrap(err, "sum valuation")
	}
	if err := r.db.Model(&model.Recipe{}).Count(&stats.TotalRecipes).Error; err != nil {
		return nil, errors.Wrap(err, "count recipes")
	}

	var rows []struct {
		Status string
		Total  int64
	}
	if err := r.db.Model(&model.Order{}).Select("status, COUNT(*) as total").Group("status").Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "count orders")
	}
	for _, row := range rows {
		stats.OrdersByStatus[row.Status] = row.Total
	}

	err := r.db.Model(&model.Order{}).
		Where("status = ?", model.StatusCompleted).
		Select("COALESCE(SUM(total_value), 0)").
		Scan(&stats.CompletedRevenue).Error
	if err != nil {
		return nil, errors.Wrap(err, "sum revenue")
	}

	return &stats, nil
}

func (r *statsRepo) GetOrderVolume(startDate, endDate time.Time) ([]OrderVolumeData, error) {
	var results []OrderVolumeData

	rows, err := r.db.Model(&model.Order{}).
		Select(`
			DATE(created_at) as date,
			COUNT(*) as orders,
			COALESCE(SUM(CASE WHEN status <> ? THEN total_value ELSE 0 END), 0) as revenue
		`, model.StatusCanceled).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, errors.Wrap(err, "order volume")
	}
	defer rows.Close()

	for rows.Next() {
		var data OrderVolumeData
		if err := rows.Scan(&data.Date, &data.Orders, &data.Revenue); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}
