package dto

import (
	"strings"

	"stayhub/internal/domains/reward/model"
	"stayhub/shared"
	"stayhub/shared/constant"
	"stayhub/shared/timezone"

	"github.com/google/uuid"
)

type AwardRequest struct {
	HostID string `json:"-"      validate:"required"`
	Delta  int64  `json:"delta"  validate:"required"`
	Reason string `json:"reason" validate:"required,max=200"`
}

func (a *AwardRequest) ToModel(actor string) model.Entry {
	return model.Entry{
		ID:        uuid.NewString(),
		HostID:    a.HostID,
		Delta:     a.Delta,
		Reason:    strings.TrimSpace(a.Reason),
		CreatedAt: timezone.Now(),
		CreatedBy: actor,
	}
}

type EntryResponse struct {
	ID           string `json:"id"`
	HostID       string `json:"host_id"`
	Delta        int64  `json:"delta"`
	Reason       string `json:"reason"`
	BalanceAfter int64  `json:"balance_after"`
	CreatedAt    string `json:"created_at"`
	CreatedBy    string `json:"created_by"`
}

func (r *EntryResponse) FromModel(entry model.Entry) {
	r.ID = entry.ID
	r.HostID = entry.HostID
	r.Delta = entry.Delta
	r.Reason = entry.Reason
	r.BalanceAfter = entry.BalanceAfter
	r.CreatedAt = timezone.Format(entry.CreatedAt, constant.DateFormat)
	r.CreatedBy = entry.CreatedBy
}

type BalanceResponse struct {
	HostID  string `json:"host_id"`
	Balance int64  `json:"balance"`
}

type HistoryResponse struct {
	Entries   []EntryResponse `json:"entries"`
	TotalPage int             `json:"total_page"`
	TotalData int             `json:"total_data"`
}

func (r *HistoryResponse) FromModels(entries []model.Entry, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)
	r.Entries = make([]EntryResponse, len(entries))

	for i, entry := range entries {
		r.Entries[i].FromModel(entry)
	}
}
