package models

import (
	"testing"
	"time"
)

func TestTaskWorkflow_Completed(t *testing.T) {
	wf := TaskWorkflow{
		TaskID: "task-1",
		Steps: []WorkflowStep{
			{Name: "gather"},
			{Name: "summarize"},
		},
	}

	if wf.Completed() {
		t.Error("workflow with no applied steps should not be completed")
	}

	wf.CurrentStep = 1
	if wf.Completed() {
		t.Error("workflow with one of two steps applied should not be completed")
	}

	wf.CurrentStep = 2
	if !wf.Completed() {
		t.Error("workflow with all steps applied should be completed")
	}
}

func TestTaskWorkflow_TimedOut(t *testing.T) {
	now := time.Now()
	wf := TaskWorkflow{Deadline: now.Add(30 * time.Minute)}

	if wf.TimedOut(now) {
		t.Error("workflow before its deadline should not be timed out")
	}
	if !wf.TimedOut(now.Add(time.Hour)) {
		t.Error("workflow past its deadline should be timed out")
	}
}
