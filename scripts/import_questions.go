// 从 YAML 题库文件批量导入测评题目
//
// 用法: go run scripts/import_questions.go -file bank.yaml
//
// 文件中 assessment.id 非空时追加到已有测评，否则先创建测评。

package main

import (
	"context"
	"flag"
	"log"
	"os"

	"corp_learning_backend/internal/config"
	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/repository"
	"corp_learning_backend/internal/service"
	"corp_learning_backend/pkg/database"
	"corp_learning_backend/pkg/logger"
	"corp_learning_backend/pkg/mockapi"

	"gopkg.in/yaml.v3"
)

type bankOption struct {
	Text    string `yaml:"text"`
	Correct bool   `yaml:"correct"`
}

type bankQuestion struct {
	Text        string       `yaml:"text"`
	Type        string       `yaml:"type"`
	Explanation string       `yaml:"explanation"`
	Options     []bankOption `yaml:"options"`
}

type bankFile struct {
	Assessment struct {
		ID             string `yaml:"id"`
		Title          string `yaml:"title"`
		Description    string `yaml:"description"`
		TimeLimit      int    `yaml:"timeLimit"`
		PassingScore   int    `yaml:"passingScore"`
		TotalQuestions int    `yaml:"totalQuestions"`
		Shuffle        bool   `yaml:"shuffle"`
		CourseID       string `yaml:"courseId"`
	} `yaml:"assessment"`
	Questions []bankQuestion `yaml:"questions"`
}

func main() {
	file := flag.String("file", "", "题库 YAML 文件路径")
	flag.Parse()
	if *file == "" {
		log.Fatal("缺少 -file 参数")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("无法读取题库文件: %v", err)
	}
	var bank bankFile
	if err := yaml.Unmarshal(data, &bank); err != nil {
		log.Fatalf("解析题库文件失败: %v", err)
	}

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	// 离线导入不模拟网络延迟
	svc := service.NewAssessmentService(repository.NewAssessmentRepository(db), mockapi.New(), nil, nil)
	ctx := context.Background()

	assessmentID := bank.Assessment.ID
	if assessmentID == "" {
		req := &service.AssessmentRequest{
			Title:            bank.Assessment.Title,
			Description:      bank.Assessment.Description,
			TimeLimit:        bank.Assessment.TimeLimit,
			PassingScore:     bank.Assessment.PassingScore,
			TotalQuestions:   bank.Assessment.TotalQuestions,
			ShuffleQuestions: bank.Assessment.Shuffle,
		}
		if bank.Assessment.CourseID != "" {
			req.CourseID = &bank.Assessment.CourseID
		}
		a, err := svc.CreateAssessment(ctx, req)
		if err != nil {
			log.Fatalf("创建测评失败: %v", err)
		}
		assessmentID = a.ID
		log.Printf("已创建测评 %s (%s)", a.Title, a.ID)
	}

	imported := 0
	for i, bq := range bank.Questions {
		req := &service.QuestionRequest{
			Text:        bq.Text,
			Type:        model.QuestionType(bq.Type),
			Explanation: bq.Explanation,
		}
		for _, o := range bq.Options {
			req.Options = append(req.Options, model.Option{Text: o.Text, IsCorrect: o.Correct})
		}
		if _, err := svc.CreateQuestion(ctx, assessmentID, req); err != nil {
			log.Printf("跳过第 %d 题: %v", i+1, err)
			continue
		}
		imported++
	}
	log.Printf("导入完成: %d/%d", imported, len(bank.Questions))
}
