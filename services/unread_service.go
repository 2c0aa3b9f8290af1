package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/andikamaulana/portal-sekolah/models"
	"github.com/andikamaulana/portal-sekolah/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// CountBreakdown -> self-check komposisi counter.
// ExpectedCount = personal + system; mismatch dicatat sebagai diagnostik,
// tidak pernah jadi error.
type CountBreakdown struct {
	OwnUnread       int64  `json:"own_unread"`
	AllSystemUnread int64  `json:"all_system_unread"` // diagnostik, hanya untuk scope view-all
	PersonalUnread  int64  `json:"personal_unread"`
	SystemUnread    int64  `json:"system_unread"`
	ExpectedCount   int64  `json:"expected_count"`
	MatchStatus     string `json:"match_status"` // match | mismatch
}

// UnreadSnapshot -> tiga counter independen dalam satu jawaban.
// UnreadNotifications SELALU dihitung terhadap user id viewer sendiri,
// berapa pun capability yang dia pegang.
type UnreadSnapshot struct {
	UnreadMessages      int64          `json:"unread_messages"`
	UnreadNotifications int64          `json:"unread_notifications"`
	ContactRequests     int64          `json:"contact_requests"`
	Breakdown           CountBreakdown `json:"breakdown"`
}

type UnreadService struct {
	DB *gorm.DB
}

func NewUnreadService(db *gorm.DB) *UnreadService {
	return &UnreadService{DB: db}
}

// isProtectedIdentity -> satu akun khusus yang count-nya selalu owner-only
// walaupun punya hak baca lebih luas di tempat lain. Dikonfigurasi lewat env,
// bukan literal hard-coded.
func isProtectedIdentity(u models.User) bool {
	protected := os.Getenv("PROTECTED_ADMIN_EMAIL")
	if protected == "" {
		return false
	}
	return strings.EqualFold(u.Email, protected)
}

// GetSnapshot -> hitung tiga counter secara paralel terhadap store otoritatif.
// Satu sub-query gagal berarti seluruh snapshot gagal: tidak ada angka
// setengah jadi yang diam-diam salah.
func (us *UnreadService) GetSnapshot(ctx context.Context, viewer models.User) (UnreadSnapshot, error) {
	// Scope gagal-tertutup: tanpa capability dan tanpa identity match,
	// semua query diagnostik tetap dibatasi ke user sendiri.
	viewAll := viewer.CanViewAllNotifications() || isProtectedIdentity(viewer)

	var (
		ownUnread       int64
		systemUnread    int64
		personalUnread  int64
		allSystemUnread int64
		unreadMessages  int64
		pendingContacts int64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := us.DB.WithContext(gctx).Model(&models.Notification{}).
			Scopes(models.UnreadNotifications(viewer.ID)).
			Count(&ownUnread).Error
		if err != nil {
			return fmt.Errorf("count own unread: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := us.DB.WithContext(gctx).Model(&models.Notification{}).
			Scopes(models.UnreadNotifications(viewer.ID)).
			Where("kind IN ?", models.SystemKinds()).
			Count(&systemUnread).Error
		if err != nil {
			return fmt.Errorf("count system unread: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := us.DB.WithContext(gctx).Model(&models.Notification{}).
			Scopes(models.UnreadNotifications(viewer.ID)).
			Where("kind NOT IN ?", models.SystemKinds()).
			Count(&personalUnread).Error
		if err != nil {
			return fmt.Errorf("count personal unread: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// Total sistem lintas user hanya untuk scope view-all; selain itu
		// tetap dibatasi ke viewer sendiri (fail closed).
		q := us.DB.WithContext(gctx).Model(&models.Notification{}).
			Where("is_read = ?", false).
			Where("kind IN ?", models.SystemKinds())
		if !viewAll {
			q = q.Where("user_id = ?", viewer.ID)
		}
		if err := q.Count(&allSystemUnread).Error; err != nil {
			return fmt.Errorf("count all system unread: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := us.DB.WithContext(gctx).Model(&models.Message{}).
			Where("receiver_id = ? AND read_at IS NULL", viewer.ID).
			Count(&unreadMessages).Error
		if err != nil {
			return fmt.Errorf("count unread messages: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// Soft-deleted rows otomatis dikecualikan oleh gorm
		err := us.DB.WithContext(gctx).Model(&models.ContactRequest{}).
			Where("status = ?", models.ContactStatusPending).
			Count(&pendingContacts).Error
		if err != nil {
			return fmt.Errorf("count contact requests: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return UnreadSnapshot{}, err
	}

	breakdown := CountBreakdown{
		OwnUnread:       ownUnread,
		AllSystemUnread: allSystemUnread,
		PersonalUnread:  personalUnread,
		SystemUnread:    systemUnread,
		ExpectedCount:   personalUnread + systemUnread,
		MatchStatus:     "match",
	}
	if breakdown.ExpectedCount != ownUnread {
		breakdown.MatchStatus = "mismatch"
		if utils.ErrorLogger != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{
				"user_id":  viewer.ID,
				"own":      ownUnread,
				"expected": breakdown.ExpectedCount,
				"personal": personalUnread,
				"system":   systemUnread,
			}).Warn("unread count mismatch")
		}
	}

	return UnreadSnapshot{
		UnreadMessages: unreadMessages,
		// Angka yang tampil di badge selalu scope owner, bukan total view-all
		UnreadNotifications: ownUnread,
		ContactRequests:     pendingContacts,
		Breakdown:           breakdown,
	}, nil
}
