package logger

import (
	"go.uber.org/zap"
)

// New builds a sugared zap logger; development mode gets the human-readable
// encoder and verbose stacks.
func New(development bool) (*zap.SugaredLogger, error) {
	var l *zap.Logger
	var err error
	if development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
