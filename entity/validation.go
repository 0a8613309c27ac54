package entity

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/c360/rosgraph/errors"
)

// ValidateNodeName checks a node name against the naming rules enforced
// before a node entity may announce itself: non-empty, alphanumerics and
// underscores only, and not starting with a digit.
func ValidateNodeName(name string) error {
	if name == "" {
		return errors.WrapInvalid(
			fmt.Errorf("node name is empty: %w", errors.ErrInvalidName),
			"entity", "ValidateNodeName", "check name")
	}
	if unicode.IsDigit(rune(name[0])) {
		return errors.WrapInvalid(
			fmt.Errorf("node name %q starts with a digit: %w", name, errors.ErrInvalidName),
			"entity", "ValidateNodeName", "check name")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return errors.WrapInvalid(
				fmt.Errorf("node name %q contains %q: %w", name, r, errors.ErrInvalidName),
				"entity", "ValidateNodeName", "check name")
		}
	}
	return nil
}

// ValidateNamespace checks a namespace: it must be absolute (start with
// "/"), must not end with "/" unless it is the root namespace, and each
// segment must satisfy the node-name rules.
func ValidateNamespace(ns string) error {
	if ns == "" || ns[0] != '/' {
		return errors.WrapInvalid(
			fmt.Errorf("namespace %q is not absolute: %w", ns, errors.ErrInvalidName),
			"entity", "ValidateNamespace", "check namespace")
	}
	if ns == "/" {
		return nil
	}
	if strings.HasSuffix(ns, "/") {
		return errors.WrapInvalid(
			fmt.Errorf("namespace %q has a trailing slash: %w", ns, errors.ErrInvalidName),
			"entity", "ValidateNamespace", "check namespace")
	}
	for _, seg := range strings.Split(ns[1:], "/") {
		if err := ValidateNodeName(seg); err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("namespace %q segment invalid: %w", ns, errors.ErrInvalidName),
				"entity", "ValidateNamespace", "check namespace")
		}
	}
	return nil
}

// ValidateTopicName checks a topic or service name. Topic names are
// absolute slash-delimited paths whose segments follow the node-name
// rules.
func ValidateTopicName(name string) error {
	if name == "" || name[0] != '/' {
		return errors.WrapInvalid(
			fmt.Errorf("topic name %q is not absolute: %w", name, errors.ErrInvalidName),
			"entity", "ValidateTopicName", "check topic")
	}
	if name == "/" || strings.HasSuffix(name, "/") {
		return errors.WrapInvalid(
			fmt.Errorf("topic name %q has a trailing slash: %w", name, errors.ErrInvalidName),
			"entity", "ValidateTopicName", "check topic")
	}
	for _, seg := range strings.Split(name[1:], "/") {
		if err := ValidateNodeName(seg); err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("topic name %q segment invalid: %w", name, errors.ErrInvalidName),
				"entity", "ValidateTopicName", "check topic")
		}
	}
	return nil
}

// FullyQualifiedName joins the namespace and node name the way ROS
// presents them: "/ns/name", or "/name" in the root namespace.
func (ni NodeInfo) FullyQualifiedName() string {
	if ni.Namespace == "/" {
		return "/" + ni.Name
	}
	return ni.Namespace + "/" + ni.Name
}
