package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"elevate/internal/common/cache"
	"elevate/internal/judge/client"
	"elevate/internal/judge/controller"
	"elevate/internal/judge/middleware"
	"elevate/internal/judge/model"
	"elevate/internal/judge/repository"
	"elevate/internal/judge/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeExecutor struct {
	outcome func(in client.ExecuteInput) model.Outcome
}

func (f *fakeExecutor) Execute(ctx context.Context, in client.ExecuteInput) model.Outcome {
	if f.outcome != nil {
		return f.outcome(in)
	}
	return model.Outcome{Success: true, Output: "hi", Status: "Accepted"}
}

func newTestRouter(t *testing.T, executor service.Executor, rateService *service.RateLimitService, policy middleware.RateLimitPolicy) *gin.Engine {
	t.Helper()
	store := repository.NewSubmissionStore(100, time.Minute)
	scheduler, err := service.NewScheduler(store, executor, service.SchedulerConfig{MaxConcurrent: 2})
	if err != nil {
		t.Fatalf("new scheduler failed: %v", err)
	}
	scheduler.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		scheduler.Stop(ctx)
	})

	judgeController := controller.NewJudgeController(scheduler, executor)
	router := gin.New()
	group := router.Group("/api/judge")
	if rateService != nil {
		group.Use(middleware.RateLimitMiddleware(rateService, policy))
	}
	group.GET("/health", judgeController.Health)
	group.POST("/submit", judgeController.Submit)
	group.GET("/result/:submissionId", judgeController.Result)
	group.POST("/execute", judgeController.Execute)
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:52000"
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, recorder.Body.String())
	}
	return body
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &fakeExecutor{}, nil, middleware.RateLimitPolicy{})

	recorder := doJSON(router, http.MethodGet, "/api/judge/health", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["ok"] != true {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestSubmitThenResult(t *testing.T) {
	router := newTestRouter(t, &fakeExecutor{}, nil, middleware.RateLimitPolicy{})

	metadata := map[string]interface{}{
		"assessmentId": "a-42",
		"question":     map[string]interface{}{"index": "3"},
	}
	recorder := doJSON(router, http.MethodPost, "/api/judge/submit", gin.H{
		"language":   "python",
		"sourceCode": "print('hi')",
		"metadata":   metadata,
	})
	if recorder.Code != http.StatusAccepted {
		t.Fatalf("unexpected status: %d (%s)", recorder.Code, recorder.Body.String())
	}
	accepted := decodeBody(t, recorder)
	if accepted["error"] != false || accepted["status"] != "queued" {
		t.Fatalf("unexpected ack: %v", accepted)
	}
	submissionID, _ := accepted["submissionId"].(string)
	if submissionID == "" {
		t.Fatalf("missing submissionId: %v", accepted)
	}

	var result map[string]interface{}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		recorder = doJSON(router, http.MethodGet, "/api/judge/result/"+submissionID, nil)
		if recorder.Code != http.StatusOK {
			t.Fatalf("unexpected status: %d", recorder.Code)
		}
		result = decodeBody(t, recorder)
		if result["status"] == "completed" || result["status"] == "error" {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if result["status"] != "completed" {
		t.Fatalf("submission never completed: %v", result)
	}
	if result["error"] != false || result["submissionId"] != submissionID {
		t.Fatalf("unexpected result envelope: %v", result)
	}
	if !reflect.DeepEqual(result["metadata"], metadata) {
		t.Fatalf("metadata did not round-trip: %v", result["metadata"])
	}
	outcome, ok := result["result"].(map[string]interface{})
	if !ok || outcome["success"] != true || outcome["output"] != "hi" {
		t.Fatalf("unexpected outcome: %v", result["result"])
	}
	for _, field := range []string{"createdAt", "updatedAt"} {
		raw, _ := result[field].(string)
		if _, err := time.Parse(time.RFC3339, raw); err != nil {
			t.Fatalf("%s is not RFC3339: %q", field, raw)
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	router := newTestRouter(t, &fakeExecutor{}, nil, middleware.RateLimitPolicy{})

	cases := []gin.H{
		{"language": "python"},
		{"sourceCode": "print('hi')"},
		{},
	}
	for _, payload := range cases {
		recorder := doJSON(router, http.MethodPost, "/api/judge/submit", payload)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("payload %v: unexpected status %d", payload, recorder.Code)
		}
		body := decodeBody(t, recorder)
		if body["error"] != true || body["message"] != "language and sourceCode are required" {
			t.Fatalf("payload %v: unexpected body %v", payload, body)
		}
	}
}

func TestResultNotFound(t *testing.T) {
	router := newTestRouter(t, &fakeExecutor{}, nil, middleware.RateLimitPolicy{})

	recorder := doJSON(router, http.MethodGet, "/api/judge/result/no-such-id", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["error"] != true || body["message"] != "Submission not found" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestExecuteSynchronous(t *testing.T) {
	executor := &fakeExecutor{outcome: func(in client.ExecuteInput) model.Outcome {
		if in.Language != "python" || in.Input != "7" {
			return model.Outcome{Success: false, Status: "Internal Error"}
		}
		return model.Outcome{Success: true, Output: "49", Status: "Accepted", ExecutionTime: 120}
	}}
	router := newTestRouter(t, executor, nil, middleware.RateLimitPolicy{})

	recorder := doJSON(router, http.MethodPost, "/api/judge/execute", gin.H{
		"language":   "python",
		"sourceCode": "print(int(input())**2)",
		"stdin":      "7",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if body["error"] != false {
		t.Fatalf("unexpected envelope: %v", body)
	}
	outcome, ok := body["result"].(map[string]interface{})
	if !ok || outcome["success"] != true || outcome["output"] != "49" {
		t.Fatalf("unexpected outcome: %v", body["result"])
	}
	if outcome["executionTime"] != float64(120) {
		t.Fatalf("unexpected executionTime: %v", outcome["executionTime"])
	}
	if outcome["error"] != nil {
		t.Fatalf("error should be null on success: %v", outcome["error"])
	}
}

func TestExecuteReportsFailureWithOK(t *testing.T) {
	executor := &fakeExecutor{outcome: func(in client.ExecuteInput) model.Outcome {
		msg := "Unsupported language: brainfug. Supported languages: python"
		return model.Outcome{Success: false, Error: &msg}
	}}
	router := newTestRouter(t, executor, nil, middleware.RateLimitPolicy{})

	recorder := doJSON(router, http.MethodPost, "/api/judge/execute", gin.H{
		"language":   "brainfug",
		"sourceCode": "+++",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	outcome, ok := body["result"].(map[string]interface{})
	if !ok || outcome["success"] != false {
		t.Fatalf("unexpected outcome: %v", body["result"])
	}
	if outcome["error"] == nil {
		t.Fatal("expected an error message")
	}
}

func TestRateLimitPerMinute(t *testing.T) {
	rateService := service.NewRateLimitService(cache.NewMemoryCache(), time.Second)
	router := newTestRouter(t, &fakeExecutor{}, rateService, middleware.RateLimitPolicy{PerMinute: 2})

	for i := 0; i < 2; i++ {
		recorder := doJSON(router, http.MethodGet, "/api/judge/health", nil)
		if recorder.Code != http.StatusOK {
			t.Fatalf("request %d unexpectedly limited: %d", i+1, recorder.Code)
		}
	}
	recorder := doJSON(router, http.MethodGet, "/api/judge/health", nil)
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["error"] != true || body["message"] != "Too many submissions, please try again in a minute." {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestRateLimitPerHourAndRecovery(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis failed to start: %v", err)
	}
	defer mr.Close()
	redisCache, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("redis cache failed: %v", err)
	}
	defer redisCache.Close()

	rateService := service.NewRateLimitService(redisCache, time.Second)
	router := newTestRouter(t, &fakeExecutor{}, rateService, middleware.RateLimitPolicy{PerHour: 1})

	if recorder := doJSON(router, http.MethodGet, "/api/judge/health", nil); recorder.Code != http.StatusOK {
		t.Fatalf("first request limited: %d", recorder.Code)
	}
	recorder := doJSON(router, http.MethodGet, "/api/judge/health", nil)
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["message"] != "Too many submissions this hour, please slow down." {
		t.Fatalf("unexpected body: %v", body)
	}

	mr.FastForward(time.Hour + time.Second)
	if recorder := doJSON(router, http.MethodGet, "/api/judge/health", nil); recorder.Code != http.StatusOK {
		t.Fatalf("limit did not reset after the window: %d", recorder.Code)
	}
}
