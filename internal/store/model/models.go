package model

import (
	"time"

	"gorm.io/datatypes"
)

type ProviderModel struct {
	ID            string  `gorm:"column:id;primaryKey"`
	Name          string  `gorm:"column:name"`
	AvatarURL     string  `gorm:"column:avatar_url"`
	WinRate       float64 `gorm:"column:win_rate"`
	Followers     int     `gorm:"column:followers"`
	TotalSignals  int     `gorm:"column:total_signals"`
	CreatedAtUnix int64   `gorm:"column:created_at"`
}

func (ProviderModel) TableName() string { return "signal_providers" }

// SignalModel 以自增 Seq 记录插入顺序，对外 ID 单独存放。
type SignalModel struct {
	Seq           int64  `gorm:"column:seq;primaryKey;autoIncrement"`
	ID            string `gorm:"column:id;uniqueIndex"`
	ProviderID    string `gorm:"column:provider_id;index"`
	Pair          string `gorm:"column:pair"`
	Type          string `gorm:"column:type"`
	Timeframe     string `gorm:"column:timeframe"`
	Entry         string `gorm:"column:entry"`
	Target        string `gorm:"column:target"`
	Stop          string `gorm:"column:stop"`
	Justification string `gorm:"column:justification"`
	ImageURL      string `gorm:"column:image_url"`
	CreatedAtUnix int64  `gorm:"column:created_at"`

	Provider ProviderModel `gorm:"foreignKey:ProviderID;references:ID"`
}

func (SignalModel) TableName() string { return "signals" }

type FollowModel struct {
	SessionID     string `gorm:"column:session_id;primaryKey"`
	ProviderID    string `gorm:"column:provider_id;primaryKey"`
	CreatedAtUnix int64  `gorm:"column:created_at"`
}

func (FollowModel) TableName() string { return "follows" }

type AnalysisModel struct {
	ID             string         `gorm:"column:id;primaryKey"`
	Model          string         `gorm:"column:model"`
	ImageName      string         `gorm:"column:image_name"`
	ImageMIME      string         `gorm:"column:image_mime"`
	ImageBytes     int            `gorm:"column:image_bytes"`
	Recommendation string         `gorm:"column:recommendation;index"`
	Confidence     int            `gorm:"column:confidence"`
	ResultJSON     datatypes.JSON `gorm:"column:result_json;type:TEXT"`
	CreatedAtUnix  int64          `gorm:"column:created_at;index"`
}

func (AnalysisModel) TableName() string { return "chart_analyses" }

func UnixTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
