package offer

import (
	"context"
	"time"
)

// Repository はオファーの永続化を行うインターフェースです。
type Repository interface {
	// Create はオファーを作成します。回答待ちのオファーが既にある場合は ErrActiveOfferExists を返します。
	Create(ctx context.Context, offer *Offer) (*Offer, error)
	FindByID(ctx context.Context, id string) (*Offer, error)
	// LockByID は更新前提でオファーを取得します (トランザクション内で行ロック)。
	LockByID(ctx context.Context, id string) (*Offer, error)
	// FindActiveByCandidate は回答待ちの個人宛てオファーを返します。存在しない場合は ErrOfferNotFound です。
	FindActiveByCandidate(ctx context.Context, candidateID string) (*Offer, error)
	// FindTemplate は求人とテストに紐づく汎用オファーを返します。存在しない場合は ErrOfferNotFound です。
	FindTemplate(ctx context.Context, vacancyID string, testID *string) (*Offer, error)
	// MarkResponded は回答待ちのオファーのみを条件付きで更新します。
	// 既に回答済みの場合は ErrOfferAlreadyResponded を返します。
	MarkResponded(ctx context.Context, id string, status Status, respondedAt time.Time) (*Offer, error)
}
