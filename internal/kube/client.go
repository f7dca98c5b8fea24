// Package kube is a read-only client for the target cluster's own management
// plane, used once the new control plane is self-hosting.
package kube

import (
	"context"
	"fmt"

	certsv1 "k8s.io/api/certificates/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// clusterOperatorGVR addresses the cluster-operator objects that report
// component rollout on the target cluster.
var clusterOperatorGVR = schema.GroupVersionResource{
	Group:    "config.openshift.io",
	Version:  "v1",
	Resource: "clusteroperators",
}

// Client wraps the typed and dynamic Kubernetes clients used to observe the
// target cluster.
type Client struct {
	clientset  kubernetes.Interface
	dynamic    dynamic.Interface
	restClient rest.Interface
}

// NewClient creates a cluster client from a kubeconfig file.
func NewClient(kubeconfigPath string) (*Client, error) {
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	return &Client{
		clientset:  clientset,
		dynamic:    dynamicClient,
		restClient: clientset.CoreV1().RESTClient(),
	}, nil
}

// NewFromClients builds a Client from pre-constructed clients. Used by tests
// with fakes.
func NewFromClients(clientset kubernetes.Interface, dyn dynamic.Interface) *Client {
	return &Client{clientset: clientset, dynamic: dyn}
}

// Reachable performs the cheap control-plane probe: a /readyz read with the
// caller's (short) deadline. Any error means "not reachable yet".
func (c *Client) Reachable(ctx context.Context) bool {
	if c.restClient == nil {
		// Fake-backed clients have no REST transport; fall back to a
		// node list with the same semantics.
		_, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{Limit: 1})
		return err == nil
	}
	result := c.restClient.Get().AbsPath("/readyz").Do(ctx)
	return result.Error() == nil
}

// Nodes lists the cluster's nodes.
func (c *Client) Nodes(ctx context.Context) ([]corev1.Node, error) {
	list, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	return list.Items, nil
}

// ClusterOperators lists the cluster operators with their key conditions
// decoded. Operators whose status block is missing or partially malformed
// are returned with whatever fields did decode; one bad condition never
// discards the operator.
func (c *Client) ClusterOperators(ctx context.Context) ([]ClusterOperator, error) {
	list, err := c.dynamic.Resource(clusterOperatorGVR).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list cluster operators: %w", err)
	}

	operators := make([]ClusterOperator, 0, len(list.Items))
	for _, item := range list.Items {
		operators = append(operators, decodeClusterOperator(item.Object))
	}
	return operators, nil
}

// PendingCSRs counts certificate signing requests that no one has approved
// or denied yet. Nodes joining the cluster stall when these pile up.
func (c *Client) PendingCSRs(ctx context.Context) (int, error) {
	list, err := c.clientset.CertificatesV1().CertificateSigningRequests().List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to list CSRs: %w", err)
	}

	pending := 0
	for _, csr := range list.Items {
		if isPendingCSR(csr) {
			pending++
		}
	}
	return pending, nil
}

func isPendingCSR(csr certsv1.CertificateSigningRequest) bool {
	for _, cond := range csr.Status.Conditions {
		if cond.Type == certsv1.CertificateApproved || cond.Type == certsv1.CertificateDenied {
			return false
		}
	}
	return true
}
