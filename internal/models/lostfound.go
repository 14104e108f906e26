package models

import "time"

// MatchCandidate - кандидат совпадения, живет только в рамках одного запроса
type MatchCandidate struct {
	ID          string  `json:"id,omitempty"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
	ImageRef    string  `json:"imageRef,omitempty"`
}

// LostFoundItem - заявка бюро находок
type LostFoundItem struct {
	ID          string    `json:"id"`
	Reporter    string    `json:"reporter"`
	Description string    `json:"description"`
	ImageRef    string    `json:"imageRef,omitempty"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// FrameAnalysis - результат анализа кадра внешним сервисом зрения
type FrameAnalysis struct {
	FireDetected  bool    `json:"fire_detected"`
	SmokeDetected bool    `json:"smoke_detected"`
	CrowdDensity  string  `json:"crowd_density"`
	PeopleCount   int     `json:"people_count"`
	ActivityLevel string  `json:"activity_level"`
	SafetyScore   float64 `json:"safety_score"`
}
