// Copyright 2022 The tribot Authors
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

package faq

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/tribot-xmpp/tribot/pkg/event"
	"github.com/tribot-xmpp/tribot/pkg/plugin"
	"github.com/tribot-xmpp/tribot/pkg/subscription"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v2"
)

// PluginName represents faq plugin name.
const PluginName = "faq"

// ErrNoQuestions is returned when the plugin is configured without questions.
var ErrNoQuestions = errors.New("faq: no questions configured")

// Answer is a single response to a question.
type Answer struct {
	Image  string `yaml:"image"`
	Answer string `yaml:"answer"`
	Link   string `yaml:"link"`
}

// Answers accepts either a single answer or a list of answers.
type Answers []Answer

// UnmarshalYAML satisfies yaml.Unmarshaler interface.
func (a *Answers) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var list []Answer
	if err := unmarshal(&list); err == nil {
		*a = list
		return nil
	}
	var single Answer
	if err := unmarshal(&single); err != nil {
		return err
	}
	*a = Answers{single}
	return nil
}

// Config contains faq plugin configuration.
type Config struct {
	// File is an optional YAML file containing a questions map.
	File string `yaml:"file"`

	// Questions maps a question to its answers.
	Questions map[string]Answers `yaml:"questions"`
}

// FAQ answers frequently asked questions.
type FAQ struct {
	bot       plugin.Bot
	logger    kitlog.Logger
	questions map[string]Answers
}

// New returns a new initialized FAQ instance.
func New(b plugin.Bot, cfg Config, logger kitlog.Logger) (*FAQ, error) {
	questions := make(map[string]Answers)
	if len(cfg.File) > 0 {
		fromFile, err := loadFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for q, a := range fromFile {
			questions[normalize(q)] = a
		}
	}
	for q, a := range cfg.Questions {
		questions[normalize(q)] = a
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return &FAQ{bot: b, logger: logger, questions: questions}, nil
}

// Name satisfies plugin.Plugin interface.
func (f *FAQ) Name() string { return PluginName }

// Commands satisfies plugin.Plugin interface.
func (f *FAQ) Commands() []plugin.Command { return nil }

// Start satisfies plugin.Plugin interface.
func (f *FAQ) Start(_ context.Context) error {
	if err := f.bot.OnMessage(subscription.Body(questionMatcher(f.questions)), f.onQuestion); err != nil {
		return err
	}
	level.Info(f.logger).Log("msg", "started faq plugin", "questions", len(f.questions))
	return nil
}

// Stop satisfies plugin.Plugin interface.
func (f *FAQ) Stop(_ context.Context) error { return nil }

func (f *FAQ) onQuestion(ctx context.Context, msg *event.Message, _ subscription.Matches) error {
	answers, ok := f.questions[normalize(msg.Body)]
	if !ok {
		return nil
	}
	return f.bot.Reply(ctx, msg, format(answers))
}

func format(answers Answers) string {
	blocks := make([]string, 0, len(answers))
	for _, a := range answers {
		var items []string
		if len(a.Image) > 0 {
			items = append(items, a.Image)
		}
		if len(a.Answer) > 0 {
			items = append(items, `"`+a.Answer+`"`)
		}
		if len(a.Link) > 0 {
			items = append(items, " -- More info: "+a.Link)
		}
		blocks = append(blocks, strings.Join(items, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// questionMatcher matches message bodies naming a known question.
type questionMatcher map[string]Answers

func (m questionMatcher) Match(str string) ([]string, bool) {
	if _, ok := m[normalize(str)]; !ok {
		return nil, false
	}
	return []string{str}, true
}

// normalize folds whitespace, case and Unicode composition.
func normalize(q string) string {
	q = strings.Join(strings.Fields(q), " ")
	return cases.Fold().String(norm.NFC.String(q))
}

func loadFile(path string) (map[string]Answers, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("faq: failed to read questions file: %w", err)
	}
	var doc struct {
		Questions map[string]Answers `yaml:"questions"`
	}
	if err := yaml.UnmarshalStrict(b, &doc); err != nil {
		return nil, fmt.Errorf("faq: invalid questions file: %w", err)
	}
	return doc.Questions, nil
}
