package inspect

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Tamerlan12345/vision/internal/analysis"
	"github.com/Tamerlan12345/vision/internal/apperr"
	"github.com/Tamerlan12345/vision/internal/store"
)

// fakeAnalyzer returns a canned analysis or error without calling any API.
type fakeAnalyzer struct {
	result *analysis.VideoAnalysis
	err    error
}

func (f *fakeAnalyzer) AnalyzeVideo(ctx context.Context, base64Video, mimeType string) (*analysis.VideoAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeNormalizer copies the input file instead of running ffmpeg.
type fakeNormalizer struct {
	err error
}

func (f *fakeNormalizer) Normalize(ctx context.Context, inputPath string) (string, func(), error) {
	if f.err != nil {
		return "", nil, f.err
	}
	out, err := os.CreateTemp("", "normalized-*")
	if err != nil {
		return "", nil, err
	}
	in, err := os.Open(inputPath)
	if err != nil {
		out.Close()
		return "", nil, err
	}
	defer in.Close()
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", nil, err
	}
	out.Close()
	return out.Name(), func() { os.Remove(out.Name()) }, nil
}

func acceptableAnalysis() *analysis.VideoAnalysis {
	return &analysis.VideoAnalysis{
		QualityAssessment: analysis.QualityAssessment{
			IsAcceptable: true,
			Reason:       "Видео принято к анализу.",
		},
		Damages: []analysis.DamageFinding{
			{Part: "Капот", Type: "Вмятина", Description: "Вмятина в центре", Confidence: 90},
		},
	}
}

func testVideoDataURL() string {
	return "data:video/mp4;base64," + base64.StdEncoding.EncodeToString([]byte("fake video bytes"))
}

func newTestOrchestrator(t *testing.T, a VideoAnalyzer, n *fakeNormalizer) *Orchestrator {
	t.Helper()
	fs, err := store.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	return New(fs, fs, a, n)
}

func TestSubmitEmpty(t *testing.T) {
	o := newTestOrchestrator(t, &fakeAnalyzer{}, &fakeNormalizer{})
	_, err := o.Submit(context.Background(), "")
	if apperr.KindOf(err) != apperr.KindInvalidInput {
		t.Errorf("expected KindInvalidInput, got %v (%v)", apperr.KindOf(err), err)
	}
}

func TestJobCompletes(t *testing.T) {
	o := newTestOrchestrator(t, &fakeAnalyzer{result: acceptableAnalysis()}, &fakeNormalizer{})
	ctx := context.Background()

	jobID, err := o.Submit(ctx, testVideoDataURL())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if jobID == "" {
		t.Fatal("empty job ID")
	}
	o.Wait()

	job, err := o.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if job.Status != store.StatusComplete {
		t.Fatalf("expected complete, got %s (stage %q, message %q)", job.Status, job.Stage, job.ErrorMessage)
	}
	if job.Stage != "" {
		t.Errorf("completed job should carry no stage, got %q", job.Stage)
	}

	data, err := o.GetResult(ctx, jobID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.Status != store.StatusComplete {
		t.Errorf("result status = %s", result.Status)
	}
	if result.Analysis == nil || !result.Analysis.QualityAssessment.IsAcceptable {
		t.Errorf("unexpected analysis: %+v", result.Analysis)
	}
	if len(result.Analysis.Damages) != 1 {
		t.Errorf("expected 1 damage, got %d", len(result.Analysis.Damages))
	}
}

func TestJobPreservesCreatedAt(t *testing.T) {
	o := newTestOrchestrator(t, &fakeAnalyzer{result: acceptableAnalysis()}, &fakeNormalizer{})
	ctx := context.Background()

	before := time.Now().UTC()
	jobID, err := o.Submit(ctx, testVideoDataURL())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o.Wait()
	after := time.Now().UTC()

	done, err := o.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if done.CreatedAt.Before(before) || done.CreatedAt.After(after) {
		t.Errorf("CreatedAt not preserved from submission: %v", done.CreatedAt)
	}
	if done.UpdatedAt.Before(done.CreatedAt) {
		t.Errorf("UpdatedAt went backwards: %v < %v", done.UpdatedAt, done.CreatedAt)
	}
}

func TestJobFailsAtConverting(t *testing.T) {
	o := newTestOrchestrator(t,
		&fakeAnalyzer{result: acceptableAnalysis()},
		&fakeNormalizer{err: errors.New("ffmpeg exploded")})
	ctx := context.Background()

	jobID, err := o.Submit(ctx, testVideoDataURL())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o.Wait()

	job, err := o.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if job.Status != store.StatusError {
		t.Fatalf("expected error status, got %s", job.Status)
	}
	if job.Stage != StageConverting {
		t.Errorf("expected stage %q, got %q", StageConverting, job.Stage)
	}
	if !strings.Contains(job.ErrorMessage, StageConverting) {
		t.Errorf("message should name the failed stage: %q", job.ErrorMessage)
	}
	if strings.Contains(job.ErrorMessage, "exploded") {
		t.Errorf("internal error detail leaked into client message: %q", job.ErrorMessage)
	}
}

func TestJobFailsAtAnalyzing(t *testing.T) {
	upstream := apperr.New(apperr.KindUpstream,
		"Не удалось получить ответ от модели ИИ.",
		"gemini 503")
	o := newTestOrchestrator(t, &fakeAnalyzer{err: upstream}, &fakeNormalizer{})
	ctx := context.Background()

	jobID, err := o.Submit(ctx, testVideoDataURL())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	o.Wait()

	job, err := o.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if job.Status != store.StatusError {
		t.Fatalf("expected error status, got %s", job.Status)
	}
	if job.Stage != StageAnalyzing {
		t.Errorf("expected stage %q, got %q", StageAnalyzing, job.Stage)
	}
	if !strings.Contains(job.ErrorMessage, "Не удалось получить ответ от модели ИИ.") {
		t.Errorf("client message missing from job error: %q", job.ErrorMessage)
	}

	// No result document for a failed job.
	if _, err := o.GetResult(ctx, jobID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected KindNotFound for failed job result, got %v", err)
	}
}

func TestJobFailsOnBadDataURL(t *testing.T) {
	o := newTestOrchestrator(t, &fakeAnalyzer{result: acceptableAnalysis()}, &fakeNormalizer{})
	ctx := context.Background()

	jobID, err := o.Submit(ctx, "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("Submit should accept the upload and fail in the worker: %v", err)
	}
	o.Wait()

	job, err := o.GetStatus(ctx, jobID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if job.Status != store.StatusError {
		t.Fatalf("expected error status, got %s", job.Status)
	}
	if job.Stage != StageSetup {
		t.Errorf("expected stage %q, got %q", StageSetup, job.Stage)
	}
}

func TestGetStatusUnknownJob(t *testing.T) {
	o := newTestOrchestrator(t, &fakeAnalyzer{}, &fakeNormalizer{})
	_, err := o.GetStatus(context.Background(), "no-such-job")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected KindNotFound, got %v (%v)", apperr.KindOf(err), err)
	}
}
