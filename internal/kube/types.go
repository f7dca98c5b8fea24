package kube

import (
	corev1 "k8s.io/api/core/v1"
)

// Machine-config annotations the node controller keeps in sync; a mismatch
// means the node is still applying configuration.
const (
	currentMachineConfigAnnotation = "machineconfiguration.openshift.io/currentConfig"
	desiredMachineConfigAnnotation = "machineconfiguration.openshift.io/desiredConfig"
)

// Node role labels.
const (
	labelMaster       = "node-role.kubernetes.io/master"
	labelControlPlane = "node-role.kubernetes.io/control-plane"
	labelWorker       = "node-role.kubernetes.io/worker"
)

// ClusterOperator is the decoded view of one cluster operator.
type ClusterOperator struct {
	Name        string
	Available   bool
	Progressing bool
	Degraded    bool

	// Message is the progressing condition's message, the most useful
	// narrative while a rollout is underway.
	Message string

	Version string
}

// decodeClusterOperator extracts the fields the monitor needs from an
// unstructured object. Every field is optional; a failed lookup leaves the
// zero value and decoding continues.
func decodeClusterOperator(obj map[string]any) ClusterOperator {
	var op ClusterOperator

	if meta, ok := obj["metadata"].(map[string]any); ok {
		if name, ok := meta["name"].(string); ok {
			op.Name = name
		}
	}

	status, ok := obj["status"].(map[string]any)
	if !ok {
		return op
	}

	if conditions, ok := status["conditions"].([]any); ok {
		for _, raw := range conditions {
			cond, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			condType, _ := cond["type"].(string)
			condStatus, _ := cond["status"].(string)
			isTrue := condStatus == "True"

			switch condType {
			case "Available":
				op.Available = isTrue
			case "Progressing":
				op.Progressing = isTrue
				if msg, ok := cond["message"].(string); ok && isTrue {
					op.Message = msg
				}
			case "Degraded":
				op.Degraded = isTrue
			}
		}
	}

	if versions, ok := status["versions"].([]any); ok {
		for _, raw := range versions {
			ver, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if name, _ := ver["name"].(string); name == "operator" {
				if v, ok := ver["version"].(string); ok {
					op.Version = v
				}
			}
		}
	}

	return op
}

// IsNodeReady reports whether the node's Ready condition is true.
func IsNodeReady(node corev1.Node) bool {
	for _, cond := range node.Status.Conditions {
		if cond.Type == corev1.NodeReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

// NodeRole derives master/worker/unknown from the node's role labels.
// Control-plane nodes count as masters.
func NodeRole(node corev1.Node) string {
	if _, ok := node.Labels[labelMaster]; ok {
		return "master"
	}
	if _, ok := node.Labels[labelControlPlane]; ok {
		return "master"
	}
	if _, ok := node.Labels[labelWorker]; ok {
		return "worker"
	}
	return "unknown"
}

// MachineConfigDrift returns the node's current and desired machine-config
// ids and whether they disagree. Nodes without the annotations report no
// drift.
func MachineConfigDrift(node corev1.Node) (current, desired string, drifted bool) {
	current = node.Annotations[currentMachineConfigAnnotation]
	desired = node.Annotations[desiredMachineConfigAnnotation]
	drifted = current != "" && desired != "" && current != desired
	return current, desired, drifted
}
