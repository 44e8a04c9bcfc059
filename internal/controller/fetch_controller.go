// Copyright 2026 Amazon Connector Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/ahmar-js/amazon-connector/pkg/config"
	"github.com/ahmar-js/amazon-connector/pkg/fetcher"
	"github.com/ahmar-js/amazon-connector/pkg/metrics"
	"github.com/ahmar-js/amazon-connector/pkg/progress"
	"github.com/ahmar-js/amazon-connector/pkg/transform"
	"github.com/ahmar-js/amazon-connector/pkg/writer"
)

const ordersActivityType = "orders"

// MarketplaceRuntime bundles the per-marketplace components the Controller
// dispatches to: the fetcher talking to SP-API, the transform pipeline, and
// the dual-sink writer for that marketplace's tables.
type MarketplaceRuntime struct {
	Code            string
	MarketplaceID   string
	CredentialGroup string
	Fetcher         *fetcher.Fetcher
	Pipeline        *transform.Pipeline
	Writer          *writer.Writer
}

// FetchController implements the single-iteration contract of spec §4.8: on
// each call to Run, it selects the one marketplace-day most overdue across
// all configured marketplaces, dispatches it, and reports a resume delay.
// It holds no internal scheduling loop itself — an external trigger (cron,
// the standalone binary's ticker) calls Run repeatedly.
type FetchController struct {
	Config   *config.Config
	Progress *progress.Store
	Runtimes map[string]*MarketplaceRuntime // keyed by marketplace Code
	Metrics  *metrics.Metrics               // optional
	Log      logr.Logger
}

// DispatchResult is the envelope returned to whatever triggers the
// Controller (cron, HTTP admin surface), per spec §6's external contract.
type DispatchResult struct {
	Status          string // "dispatched", "busy", "completed"
	MarketplaceID   string
	Date            time.Time
	NextDelay       time.Duration
	CredentialGroup string
}

type candidate struct {
	code            string
	credentialGroup string
	start           time.Time
	end             time.Time
	previousLastRun time.Time
}

// Run executes one iteration of the Controller's contract.
func (c *FetchController) Run(ctx context.Context) (DispatchResult, error) {
	candidates, err := c.collectCandidates(ctx)
	if err != nil {
		return DispatchResult{}, err
	}
	if len(candidates) == 0 {
		return DispatchResult{Status: "completed"}, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].start.Equal(candidates[j].start) {
			return candidates[i].start.Before(candidates[j].start)
		}
		return candidates[i].code < candidates[j].code
	})

	chosen := candidates[0]

	inProgress, err := c.Progress.HasInProgress(ctx, chosen.code, ordersActivityType)
	if err != nil {
		return DispatchResult{}, err
	}
	if inProgress {
		c.Log.Info("marketplace already has an in-progress fetch, skipping this iteration", "marketplace", chosen.code)
		c.recordDispatch(chosen.code, "busy", 0)
		return DispatchResult{Status: "busy", MarketplaceID: chosen.code}, nil
	}

	started := time.Now()
	if err := c.fetchForDay(ctx, chosen); err != nil {
		c.recordDispatch(chosen.code, "failed", time.Since(started))
		return DispatchResult{}, fmt.Errorf("fetchForDay(%s, %s): %w", chosen.code, chosen.start, err)
	}
	c.recordDispatch(chosen.code, "dispatched", time.Since(started))

	nextDelay := c.Config.GetMarketplaceFetchDelay()
	if len(candidates) > 1 && candidates[1].credentialGroup == chosen.credentialGroup {
		nextDelay = c.Config.GetSameCredentialGroupDelay()
	}

	return DispatchResult{
		Status:          "dispatched",
		MarketplaceID:   chosen.code,
		Date:            chosen.start,
		NextDelay:       nextDelay,
		CredentialGroup: chosen.credentialGroup,
	}, nil
}

// collectCandidates computes nextStart/nextEnd for every configured
// marketplace and drops those past END_DATE, per spec §4.8 step 1.
func (c *FetchController) collectCandidates(ctx context.Context) ([]candidate, error) {
	endDate := c.Config.GetEndDate()
	seed := c.Config.GetSeedLastRun()

	var out []candidate
	for _, mp := range c.Config.Marketplaces {
		lastRun, err := c.Progress.GetLastRun(ctx, mp.Code)
		if err != nil && !errors.Is(err, progress.ErrNotFound) {
			return nil, err
		}

		start, end := progress.GetNextWindow(lastRun, seed)
		if !progress.InRange(start, endDate) {
			continue
		}

		out = append(out, candidate{
			code:            mp.Code,
			credentialGroup: mp.CredentialGroup,
			start:           start,
			end:             end,
			previousLastRun: lastRun,
		})
	}

	return out, nil
}

// fetchForDay runs the full per-day pipeline for one marketplace: fetch,
// transform, write, and — only on at least one sink success — advance the
// high-water mark, per spec §4.6's advancement rule and §4.8's dispatch.
func (c *FetchController) fetchForDay(ctx context.Context, cand candidate) error {
	rt, ok := c.Runtimes[cand.code]
	if !ok {
		return fmt.Errorf("no runtime configured for marketplace %s", cand.code)
	}

	log := c.Log.WithValues("marketplace", cand.code, "date", cand.start.Format("2006-01-02"))

	activity, err := c.Progress.BeginActivity(ctx, cand.code, ordersActivityType)
	if err != nil {
		return err
	}

	result, fetchErr := rt.Fetcher.Fetch(ctx, rt.MarketplaceID, cand.start, cand.end, 0)
	if fetchErr != nil {
		log.Error(fetchErr, "fetch failed")
		return c.Progress.Complete(ctx, activity.ActivityID, progress.ActivityFailed, fetchErr.Error(), false, false)
	}

	out, transformErr := rt.Pipeline.Run(result.Orders, result.ItemsByOrder)
	if transformErr != nil {
		log.Error(transformErr, "transform failed")
		return c.Progress.Complete(ctx, activity.ActivityID, progress.ActivityFailed, transformErr.Error(), false, false)
	}

	report := rt.Writer.Write(ctx, out)
	detail := fmt.Sprintf("mssql: %+v azure: %+v", report.MSSQL, report.Azure)

	status := progress.ActivityFailed
	if report.Succeeded() {
		status = progress.ActivityCompleted
		if err := c.Progress.AdvanceLastRun(ctx, cand.code, cand.previousLastRun, cand.end); err != nil {
			log.Error(err, "failed to advance high-water mark despite writer success")
		}
	}

	return c.Progress.Complete(ctx, activity.ActivityID, status, detail, report.MSSQL.Success, report.Azure.Success)
}

// SyncPlaceholder is a documented no-op extension point standing in for a
// possible second-stage sync task. spec.md defines no operations for it, so
// it intentionally does nothing.
func (c *FetchController) SyncPlaceholder(ctx context.Context) error {
	return nil
}

// recordDispatch reports one Run outcome if a Metrics recorder is attached.
func (c *FetchController) recordDispatch(marketplace, status string, duration time.Duration) {
	if c.Metrics != nil {
		c.Metrics.RecordDispatch(marketplace, status, duration)
	}
}
