package common

import (
	"errors"
	"fmt"
	"strings"
)

type Animal string

const (
	Cat  Animal = "cat"
	Dog  Animal = "dog"
	Bear Animal = "bear"
)

// Animals lists the supported animals in display order.
var Animals = []Animal{Cat, Dog, Bear}

var ErrUnsupportedAnimal = errors.New("unsupported animal")

func (a Animal) String() string {
	return string(a)
}

func (a Animal) IsValid() bool {
	switch a {
	case Cat, Dog, Bear:
		return true
	}
	return false
}

// ParseAnimal lowercases the input and checks it against the supported set.
func ParseAnimal(value string) (Animal, error) {
	animal := Animal(strings.ToLower(value))
	if !animal.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAnimal, value)
	}
	return animal, nil
}
