// Copyright 2024 Greptime Team
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

package component

import (
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
)

type jobBehaviour struct{}

func (jobBehaviour) PrepareDeploy(c *Component) error {
	if c.Job == nil {
		c.Job = &batchv1.Job{}
	}
	if c.Job.Spec.Template.Spec.RestartPolicy == "" {
		c.Job.Spec.Template.Spec.RestartPolicy = corev1.RestartPolicyNever
	}

	if err := c.basicPrepareDeploy(&c.Job.ObjectMeta, &c.Job.Spec.Template); err != nil {
		return err
	}

	return c.synthesizeImplicitChildren(1)
}

func (jobBehaviour) Probe(c *Component, obj interface{}) ProbeResult {
	j, ok := obj.(*batchv1.Job)
	if !ok {
		return ProbeDoesNotExist
	}
	for _, cond := range j.Status.Conditions {
		if cond.Status != corev1.ConditionTrue {
			continue
		}
		switch cond.Type {
		case batchv1.JobComplete:
			return ProbeDone
		case "Available":
			return ProbeDone
		case batchv1.JobFailed:
			return ProbeFailed
		}
	}
	return ProbePending
}
