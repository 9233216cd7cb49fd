package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

const auditConcurrency = 8

type auditService struct {
	tallyRepo ports.TallyRepository
}

func NewAuditService(tallyRepo ports.TallyRepository) ports.AuditService {
	return &auditService{
		tallyRepo: tallyRepo,
	}
}

func (s *auditService) AuditAll(ctx context.Context) ([]domain.TallyReport, error) {
	pollIDs, err := s.tallyRepo.PollIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch poll ids: %w", err)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		drifted   []domain.TallyReport
		firstErr  error
		semaphore = make(chan struct{}, auditConcurrency)
	)

	for _, pollID := range pollIDs {
		wg.Add(1)
		go func(pID uuid.UUID) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			report, err := s.tallyRepo.Report(ctx, pID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("failed to audit poll %s: %w", pID, err)
				}
				return
			}
			if !report.Consistent() {
				drifted = append(drifted, report)
			}
		}(pollID)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	sort.Slice(drifted, func(i, j int) bool {
		return drifted[i].PollID.String() < drifted[j].PollID.String()
	})
	return drifted, nil
}
